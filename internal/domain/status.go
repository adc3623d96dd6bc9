package domain

import "time"

// StatusLevel is the severity of a status message
type StatusLevel string

const (
	StatusInfo    StatusLevel = "info"
	StatusLoading StatusLevel = "loading"
	StatusSuccess StatusLevel = "success"
	StatusWarning StatusLevel = "warning"
	StatusError   StatusLevel = "error"
)

// Status sources published by this service
const (
	SourceSearch  = "search"
	SourceBarcode = "barcode"
	SourceVitrin  = "vitrin"
	SourceBackend = "backend"
)

// Status is one status message from an asynchronous operation.
// Seq and UpdatedAt are stamped by the bus on publish.
type Status struct {
	Source    string      `json:"source"`
	Message   string      `json:"message"`
	Level     StatusLevel `json:"level"`
	Priority  int         `json:"priority"`
	Seq       uint64      `json:"seq"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
