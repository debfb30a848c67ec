package downloader

import (
	"context"
	"errors"

	"github.com/levijay/huntarr/internal/models"
)

// ErrNotFound is returned by Remove and Find when the client no longer
// knows the handle.
var ErrNotFound = errors.New("transfer not found in download client")

// TransferState is the coarse state a download client reports for one
// transfer
type TransferState string

const (
	TransferDownloading TransferState = "downloading"
	TransferCompleted   TransferState = "completed"
	TransferFailed      TransferState = "failed"
)

// Transfer is the client-neutral view of one item in a download client
type Transfer struct {
	Handle   string
	Name     string
	State    TransferState
	Progress float64
	Path     string
	Message  string
}

// Driver is the download-client abstraction. Add returns the client's
// handle for the new transfer, or an empty string when the client cannot
// report it synchronously and the caller must discover it by polling.
type Driver interface {
	Add(ctx context.Context, downloadURL, name string) (string, error)
	ListActive(ctx context.Context) ([]Transfer, error)
	Remove(ctx context.Context, handle string, deleteData bool) error
	Protocol() models.Protocol
}

// Registry maps a release protocol to the driver configured for it
type Registry map[models.Protocol]Driver

// ForProtocol returns the driver handling the given protocol
func (r Registry) ForProtocol(p models.Protocol) (Driver, error) {
	d, ok := r[p]
	if !ok {
		return nil, errors.New("no download client configured for protocol " + string(p))
	}
	return d, nil
}
