//go:build !windows

package journal

import (
	"fmt"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

// Open reports that no change journal is available on this platform.
func Open(volume string) (Device, ParentResolver, error) {
	return nil, nil, fmt.Errorf("%w: %s: change journal requires NTFS on Windows", types.ErrJournalUnavailable, volume)
}
