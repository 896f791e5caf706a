//go:build windows

package journal

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

const (
	fsctlReadUSNJournal   = 0x000900bb
	fsctlCreateUSNJournal = 0x000900e7
	fsctlQueryUSNJournal  = 0x000900f4

	errJournalDeleteInProgress = windows.Errno(1178)
	errJournalNotActive        = windows.Errno(1179)
	errJournalEntryDeleted     = windows.Errno(1181)
)

// usnJournalDataV0 mirrors USN_JOURNAL_DATA_V0.
type usnJournalDataV0 struct {
	UsnJournalID    uint64
	FirstUsn        int64
	NextUsn         int64
	LowestValidUsn  int64
	MaxUsn          int64
	MaximumSize     uint64
	AllocationDelta uint64
}

// createUSNJournalData mirrors CREATE_USN_JOURNAL_DATA.
type createUSNJournalData struct {
	MaximumSize     uint64
	AllocationDelta uint64
}

// readUSNJournalDataV1 mirrors READ_USN_JOURNAL_DATA_V1.
type readUSNJournalDataV1 struct {
	StartUsn          int64
	ReasonMask        uint32
	ReturnOnlyOnClose uint32
	Timeout           uint64
	BytesToWaitFor    uint64
	UsnJournalID      uint64
	MinMajorVersion   uint16
	MaxMajorVersion   uint16
}

type winDevice struct {
	h windows.Handle
}

// Open opens the change journal of volume, e.g. `C:\`.
func Open(volume string) (Device, ParentResolver, error) {
	root := strings.TrimRight(volume, `\`)
	if len(root) != 2 || root[1] != ':' {
		return nil, nil, fmt.Errorf("%w: %q is not a drive root", types.ErrVolumeAccess, volume)
	}

	name, err := windows.UTF16PtrFromString(`\\.\` + root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", types.ErrVolumeAccess, err)
	}

	h, err := windows.CreateFile(name,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil, windows.OPEN_EXISTING, 0, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: opening %s: %w", types.ErrVolumeAccess, volume, err)
	}

	return &winDevice{h: h}, &winResolver{volume: h}, nil
}

func (d *winDevice) Query() (Data, error) {
	var out usnJournalDataV0
	var n uint32
	err := windows.DeviceIoControl(d.h, fsctlQueryUSNJournal, nil, 0,
		(*byte)(unsafe.Pointer(&out)), uint32(unsafe.Sizeof(out)), &n, nil)
	if err != nil {
		if errors.Is(err, errJournalNotActive) || errors.Is(err, errJournalDeleteInProgress) {
			return Data{}, ErrNotActive
		}
		return Data{}, fmt.Errorf("querying journal: %w", err)
	}
	return Data{
		JournalID:       out.UsnJournalID,
		FirstUSN:        out.FirstUsn,
		NextUSN:         out.NextUsn,
		LowestValidUSN:  out.LowestValidUsn,
		MaxUSN:          out.MaxUsn,
		MaximumSize:     out.MaximumSize,
		AllocationDelta: out.AllocationDelta,
	}, nil
}

func (d *winDevice) Create(maximumSize, allocationDelta uint64) error {
	in := createUSNJournalData{MaximumSize: maximumSize, AllocationDelta: allocationDelta}
	var n uint32
	err := windows.DeviceIoControl(d.h, fsctlCreateUSNJournal,
		(*byte)(unsafe.Pointer(&in)), uint32(unsafe.Sizeof(in)), nil, 0, &n, nil)
	if err != nil {
		return fmt.Errorf("creating journal: %w", err)
	}
	return nil
}

func (d *winDevice) ReadPage(start int64, journalID uint64, buf []byte) (int, error) {
	in := readUSNJournalDataV1{
		StartUsn:        start,
		ReasonMask:      0xFFFFFFFF,
		UsnJournalID:    journalID,
		MinMajorVersion: 2,
		MaxMajorVersion: 2,
	}
	var n uint32
	err := windows.DeviceIoControl(d.h, fsctlReadUSNJournal,
		(*byte)(unsafe.Pointer(&in)), uint32(unsafe.Sizeof(in)),
		&buf[0], uint32(len(buf)), &n, nil)
	if err != nil {
		if errors.Is(err, errJournalEntryDeleted) {
			return 0, ErrCursorExpired
		}
		return 0, fmt.Errorf("reading journal: %w", err)
	}
	return int(n), nil
}

func (d *winDevice) Close() error {
	return windows.CloseHandle(d.h)
}
