// Package journaltest provides an in-memory change journal for tests of
// code built on journal.Reader.
package journaltest

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/jamesainslie/seek/pkg/seek/journal"
)

// Device is a journal.Device serving records from memory.
type Device struct {
	mu sync.Mutex

	Data     journal.Data
	Records  []journal.Record
	PageSize int

	// Inactive makes Query fail with journal.ErrNotActive until Create.
	Inactive bool

	// OnRead is called with the 1-based read count before each page is served.
	OnRead func(n int)

	reads  int
	closed bool
}

// NewDevice returns a device holding records, numbered from USN 100 in
// steps of 10, served pageSize records per read.
func NewDevice(journalID uint64, pageSize int, records ...journal.Record) *Device {
	usn := int64(100)
	for i := range records {
		records[i].USN = usn
		usn += 10
	}
	return &Device{
		Data:     journal.Data{JournalID: journalID, FirstUSN: 100, NextUSN: usn},
		Records:  records,
		PageSize: pageSize,
	}
}

// File returns a close record for a file named name in directory parent.
func File(frn, parent uint64, name string) journal.Record {
	return journal.Record{
		FileReferenceNumber:       frn,
		ParentFileReferenceNumber: parent,
		Reason:                    journal.ReasonClose,
		FileName:                  name,
		TimeStamp:                 time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// Query implements journal.Device.
func (d *Device) Query() (journal.Data, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Inactive {
		return journal.Data{}, journal.ErrNotActive
	}
	return d.Data, nil
}

// Create implements journal.Device.
func (d *Device) Create(uint64, uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Inactive = false
	return nil
}

// ReadPage implements journal.Device.
func (d *Device) ReadPage(start int64, _ uint64, buf []byte) (int, error) {
	d.mu.Lock()
	d.reads++
	n, hook := d.reads, d.OnRead
	d.mu.Unlock()

	if hook != nil {
		hook(n)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var page []journal.Record
	next := start
	for _, r := range d.Records {
		if r.USN >= start && len(page) < d.PageSize {
			page = append(page, r)
			next = r.USN + 1
		}
	}
	if len(page) == 0 {
		next = d.Data.NextUSN
	}
	return copy(buf, journal.EncodePage(next, page)), nil
}

// Close implements journal.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Reads returns the number of pages read.
func (d *Device) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Resolver maps directory ids to paths.
type Resolver map[uint64]string

// ResolveDir implements journal.ParentResolver.
func (r Resolver) ResolveDir(frn uint64) (string, error) {
	if p, ok := r[frn]; ok {
		return p, nil
	}
	return "", errors.New("no such id")
}

// Opener returns a journal.Opener serving devices by volume. Volumes
// without a device fail with err.
func Opener(devices map[string]*Device, resolver Resolver, err error) journal.Opener {
	return func(volume string) (journal.Device, journal.ParentResolver, error) {
		d, ok := devices[volume]
		if !ok {
			return nil, nil, err
		}
		return d, resolver, nil
	}
}

// StatAny reports every path as an existing regular file of size 1.
func StatAny(path string) (fs.FileInfo, error) {
	return FileInfo{name: filepath.Base(path), size: 1}, nil
}

// FileInfo is a minimal fs.FileInfo.
type FileInfo struct {
	name string
	size int64
	dir  bool
}

func (fi FileInfo) Name() string       { return fi.name }
func (fi FileInfo) Size() int64        { return fi.size }
func (fi FileInfo) Mode() fs.FileMode  { return 0o644 }
func (fi FileInfo) ModTime() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local) }
func (fi FileInfo) IsDir() bool        { return fi.dir }
func (fi FileInfo) Sys() any           { return nil }
