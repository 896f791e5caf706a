package types

import (
	"errors"
	"fmt"
)

// Error taxonomy for indexing sessions. Per-volume and per-entry errors are
// recovered where they occur; store errors and cancellation end a session.
var (
	// ErrVolumeAccess indicates a volume could not be opened or queried.
	ErrVolumeAccess = errors.New("volume not accessible")

	// ErrUnsupportedFilesystem indicates the volume cannot serve the journal strategy.
	ErrUnsupportedFilesystem = errors.New("unsupported filesystem")

	// ErrJournalUnavailable indicates the change journal is missing and could not be created.
	ErrJournalUnavailable = errors.New("change journal unavailable")

	// ErrStore indicates a catalog write or publish failure.
	ErrStore = errors.New("catalog store error")

	// ErrCancelled indicates the session stopped on user request.
	ErrCancelled = errors.New("indexing cancelled")

	// ErrSessionActive is returned when a session is started while another runs.
	ErrSessionActive = errors.New("an indexing session is already running")

	// ErrNoCatalog is returned by searches when no catalog is open.
	ErrNoCatalog = errors.New("no catalog open")

	// ErrInvalidRequest indicates a malformed scan request.
	ErrInvalidRequest = errors.New("invalid scan request")
)

// VolumeError reports a volume that was skipped and why.
type VolumeError struct {
	Volume string `json:"volume"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// NewVolumeError wraps err for volume.
func NewVolumeError(volume string, err error) *VolumeError {
	return &VolumeError{Volume: volume, Reason: err.Error(), Err: err}
}

// Error implements error.
func (e *VolumeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Volume, e.Reason)
}

// Unwrap returns the underlying error.
func (e *VolumeError) Unwrap() error {
	return e.Err
}
