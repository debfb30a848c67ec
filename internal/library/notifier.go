package library

import "github.com/sirupsen/logrus"

// LogNotifier emits lifecycle events to the application log
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event with its fields. Never blocks, never fails.
func (n *LogNotifier) Notify(event string, fields map[string]interface{}) {
	n.logger.WithFields(logrus.Fields(fields)).WithField("event", event).Info("Notification")
}
