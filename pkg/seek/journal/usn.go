package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
	"unicode/utf16"
)

// Reason flags carried by change journal records.
const (
	ReasonDataOverwrite   uint32 = 0x00000001
	ReasonDataExtend      uint32 = 0x00000002
	ReasonFileCreate      uint32 = 0x00000100
	ReasonFileDelete      uint32 = 0x00000200
	ReasonRenameOldName   uint32 = 0x00001000
	ReasonRenameNewName   uint32 = 0x00002000
	ReasonBasicInfoChange uint32 = 0x00008000
	ReasonClose           uint32 = 0x80000000
)

// AttrDirectory is the file attribute bit for directories.
const AttrDirectory uint32 = 0x00000010

const (
	recordHeaderV2 = 60
	pageHeader     = 8

	// filetimeEpoch is the number of 100ns intervals between 1601-01-01 and 1970-01-01.
	filetimeEpoch = 116444736000000000
)

// ErrMalformedPage is returned when a journal page cannot be decoded.
var ErrMalformedPage = errors.New("malformed journal page")

// Data describes a volume's change journal.
type Data struct {
	JournalID       uint64
	FirstUSN        int64
	NextUSN         int64
	LowestValidUSN  int64
	MaxUSN          int64
	MaximumSize     uint64
	AllocationDelta uint64
}

// Record is one version 2 change journal record.
type Record struct {
	FileReferenceNumber       uint64
	ParentFileReferenceNumber uint64
	USN                       int64
	TimeStamp                 time.Time
	Reason                    uint32
	FileAttributes            uint32
	FileName                  string
}

// IsDir reports whether the record describes a directory.
func (r Record) IsDir() bool {
	return r.FileAttributes&AttrDirectory != 0
}

// Has reports whether any of the given reason bits are set.
func (r Record) Has(reason uint32) bool {
	return r.Reason&reason != 0
}

// MarshalBinary encodes the record in the on-disk version 2 layout.
func (r Record) MarshalBinary() ([]byte, error) {
	name := utf16.Encode([]rune(r.FileName))
	nameLen := len(name) * 2
	length := (recordHeaderV2 + nameLen + 7) &^ 7

	buf := make([]byte, length)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], uint32(length))
	le.PutUint16(buf[4:], 2)
	le.PutUint16(buf[6:], 0)
	le.PutUint64(buf[8:], r.FileReferenceNumber)
	le.PutUint64(buf[16:], r.ParentFileReferenceNumber)
	le.PutUint64(buf[24:], uint64(r.USN))
	le.PutUint64(buf[32:], uint64(toFiletime(r.TimeStamp)))
	le.PutUint32(buf[40:], r.Reason)
	le.PutUint32(buf[52:], r.FileAttributes)
	le.PutUint16(buf[56:], uint16(nameLen))
	le.PutUint16(buf[58:], recordHeaderV2)
	for i, c := range name {
		le.PutUint16(buf[recordHeaderV2+2*i:], c)
	}
	return buf, nil
}

// ParsePage decodes the output of one journal read: the USN to continue
// from, followed by packed records. Records of other major versions are
// skipped.
func ParsePage(buf []byte) (int64, []Record, error) {
	if len(buf) < pageHeader {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrMalformedPage, len(buf))
	}
	le := binary.LittleEndian
	next := int64(le.Uint64(buf))

	var records []Record
	for off := pageHeader; off < len(buf); {
		if len(buf)-off < 4 {
			return 0, nil, fmt.Errorf("%w: truncated record at %d", ErrMalformedPage, off)
		}
		length := int(le.Uint32(buf[off:]))
		if length < recordHeaderV2 || off+length > len(buf) {
			return 0, nil, fmt.Errorf("%w: bad record length %d at %d", ErrMalformedPage, length, off)
		}
		rec := buf[off : off+length]
		off += length

		if le.Uint16(rec[4:]) != 2 {
			continue
		}

		nameLen := int(le.Uint16(rec[56:]))
		nameOff := int(le.Uint16(rec[58:]))
		if nameOff+nameLen > length || nameLen%2 != 0 {
			return 0, nil, fmt.Errorf("%w: bad file name bounds", ErrMalformedPage)
		}
		name := make([]uint16, nameLen/2)
		for i := range name {
			name[i] = le.Uint16(rec[nameOff+2*i:])
		}

		records = append(records, Record{
			FileReferenceNumber:       le.Uint64(rec[8:]),
			ParentFileReferenceNumber: le.Uint64(rec[16:]),
			USN:                       int64(le.Uint64(rec[24:])),
			TimeStamp:                 fromFiletime(int64(le.Uint64(rec[32:]))),
			Reason:                    le.Uint32(rec[40:]),
			FileAttributes:            le.Uint32(rec[52:]),
			FileName:                  string(utf16.Decode(name)),
		})
	}
	return next, records, nil
}

// EncodePage packs records behind a next-USN header, as a journal read returns them.
func EncodePage(next int64, records []Record) []byte {
	buf := make([]byte, pageHeader)
	binary.LittleEndian.PutUint64(buf, uint64(next))
	for _, r := range records {
		b, _ := r.MarshalBinary()
		buf = append(buf, b...)
	}
	return buf
}

func fromFiletime(ft int64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	return time.Unix(0, (ft-filetimeEpoch)*100)
}

func toFiletime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()/100 + filetimeEpoch
}
