// Package journal reads the NTFS change journal of a volume and turns its
// records into catalog entries. The device protocol sits behind the Device
// interface; only Windows provides a real implementation.
package journal

import "errors"

// Default journal sizes used when a volume has no active journal.
const (
	DefaultMaximumSize     uint64 = 32 * 1024 * 1024
	DefaultAllocationDelta uint64 = 4 * 1024 * 1024
)

var (
	// ErrNotActive is returned by Device.Query when the volume has no journal.
	ErrNotActive = errors.New("change journal not active")

	// ErrCursorExpired is returned by Device.ReadPage when the requested USN
	// has already been purged from the journal.
	ErrCursorExpired = errors.New("journal cursor expired")
)

// Device is an open handle to a volume's change journal.
type Device interface {
	// Query returns the journal's identity and USN range.
	Query() (Data, error)

	// Create creates (or resizes) the journal.
	Create(maximumSize, allocationDelta uint64) error

	// ReadPage reads records starting at start into buf and returns the
	// number of bytes written. The first 8 bytes hold the next USN.
	ReadPage(start int64, journalID uint64, buf []byte) (int, error)

	Close() error
}

// ParentResolver maps a directory's file reference number to its current
// full path on the volume.
type ParentResolver interface {
	ResolveDir(frn uint64) (string, error)
}

// Opener opens the journal of a volume root such as `C:\`. The resolver may
// be nil when the platform cannot look files up by id.
type Opener func(volume string) (Device, ParentResolver, error)
