// Package ntfileinfo reads the NT basic file information of a path: the four
// NTFS timestamps (creation, last access, last write, change) and the raw
// attribute bits, as returned by NtQueryInformationFile(FileBasicInformation).
package ntfileinfo

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// BasicInformationSize is the number of meaningful bytes in
	// FILE_BASIC_INFORMATION: four int64 tick counts and one uint32.
	BasicInformationSize = 36

	// basicInformationBufferSize is sizeof(FILE_BASIC_INFORMATION) as the
	// kernel checks it. The struct is 8-byte aligned, so the trailing uint32
	// is followed by 4 bytes of padding.
	basicInformationBufferSize = 40

	offsetCreationTime   = 0
	offsetLastAccessTime = 8
	offsetLastWriteTime  = 16
	offsetChangeTime     = 24
	offsetFileAttributes = 32
)

// BasicInformation mirrors FILE_BASIC_INFORMATION. Times are raw tick counts.
type BasicInformation struct {
	CreationTime   int64
	LastAccessTime int64
	LastWriteTime  int64
	ChangeTime     int64
	FileAttributes uint32
}

// DecodeBasicInformation reads a FILE_BASIC_INFORMATION layout from b.
// Bytes past BasicInformationSize are ignored.
func DecodeBasicInformation(b []byte) (BasicInformation, error) {
	if len(b) < BasicInformationSize {
		return BasicInformation{}, fmt.Errorf("basic information buffer too short: %d bytes, need %d", len(b), BasicInformationSize)
	}

	le := binary.LittleEndian
	return BasicInformation{
		CreationTime:   int64(le.Uint64(b[offsetCreationTime:])),
		LastAccessTime: int64(le.Uint64(b[offsetLastAccessTime:])),
		LastWriteTime:  int64(le.Uint64(b[offsetLastWriteTime:])),
		ChangeTime:     int64(le.Uint64(b[offsetChangeTime:])),
		FileAttributes: le.Uint32(b[offsetFileAttributes:]),
	}, nil
}

// Record converts the raw structure into a Record for path.
func (bi BasicInformation) Record(path string) *Record {
	return &Record{
		Path:           path,
		CreationTime:   TicksToTime(bi.CreationTime),
		LastAccessTime: TicksToTime(bi.LastAccessTime),
		LastWriteTime:  TicksToTime(bi.LastWriteTime),
		ChangeTime:     TicksToTime(bi.ChangeTime),
		Attributes:     FileAttributes(bi.FileAttributes),
	}
}

// Record is the result of one basic information query. All four times come
// from the same query call.
type Record struct {
	// Path is the queried path exactly as given by the caller.
	Path           string
	CreationTime   time.Time
	LastAccessTime time.Time
	LastWriteTime  time.Time
	ChangeTime     time.Time
	Attributes     FileAttributes
}

// Equal reports whether r and o carry the same path, times and attributes.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.Path == o.Path &&
		r.CreationTime.Equal(o.CreationTime) &&
		r.LastAccessTime.Equal(o.LastAccessTime) &&
		r.LastWriteTime.Equal(o.LastWriteTime) &&
		r.ChangeTime.Equal(o.ChangeTime) &&
		r.Attributes == o.Attributes
}
