package models

import "time"

// Exclusion marks an external catalog ID the user never wants acquired
type Exclusion struct {
	ID         uint64 `boltholdKey:"ID"`
	ExternalID string `boltholdIndex:"ExternalID"`
	Reason     string
	CreatedAt  time.Time
}
