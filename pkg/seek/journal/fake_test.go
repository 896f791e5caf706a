package journal

import (
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

// fakeDevice serves records from memory, pageSize records per read.
type fakeDevice struct {
	data      Data
	active    bool
	createErr error
	records   []Record
	pageSize  int
	reads     int
	expired   int64
	created   bool
	closed    bool
}

func newFakeDevice(records ...Record) *fakeDevice {
	usn := int64(100)
	for i := range records {
		records[i].USN = usn
		usn += 10
	}
	return &fakeDevice{
		data:     Data{JournalID: 7, FirstUSN: 100, NextUSN: usn},
		active:   true,
		records:  records,
		pageSize: 2,
		expired:  -1,
	}
}

func (d *fakeDevice) Query() (Data, error) {
	if !d.active {
		return Data{}, ErrNotActive
	}
	return d.data, nil
}

func (d *fakeDevice) Create(uint64, uint64) error {
	if d.createErr != nil {
		return d.createErr
	}
	d.active = true
	d.created = true
	return nil
}

func (d *fakeDevice) ReadPage(start int64, _ uint64, buf []byte) (int, error) {
	d.reads++
	if start == d.expired {
		return 0, ErrCursorExpired
	}
	var page []Record
	next := start
	for _, r := range d.records {
		if r.USN >= start && len(page) < d.pageSize {
			page = append(page, r)
			next = r.USN + 1
		}
	}
	if len(page) == 0 {
		next = d.data.NextUSN
	}
	return copy(buf, EncodePage(next, page)), nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

// fakeResolver knows a fixed set of directories.
type fakeResolver map[uint64]string

func (f fakeResolver) ResolveDir(frn uint64) (string, error) {
	if p, ok := f[frn]; ok {
		return p, nil
	}
	return "", errors.New("no such id")
}

// fakeFS answers Stat for a fixed set of files and directories.
type fakeFS map[string]fakeInfo

type fakeInfo struct {
	size int64
	dir  bool
}

func (f fakeFS) stat(path string) (fs.FileInfo, error) {
	fi, ok := f[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return fileInfo{name: filepath.Base(path), fakeInfo: fi}, nil
}

type fileInfo struct {
	name string
	fakeInfo
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) Mode() fs.FileMode  { return 0o644 }
func (fi fileInfo) ModTime() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 600, time.Local) }
func (fi fileInfo) IsDir() bool        { return fi.dir }
func (fi fileInfo) Sys() any           { return nil }

// memSink records what the reader produced.
type memSink struct {
	added   []types.FileRecord
	removed []string
	failOn  string
}

func (s *memSink) Add(r types.FileRecord) error {
	if s.failOn != "" && r.Filename == s.failOn {
		return errors.New("sink failed")
	}
	s.added = append(s.added, r)
	return nil
}

func (s *memSink) Remove(path string) error {
	s.removed = append(s.removed, path)
	return nil
}

func (s *memSink) paths() []string {
	var out []string
	for _, r := range s.added {
		out = append(out, r.Path)
	}
	return out
}
