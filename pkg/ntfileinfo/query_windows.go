//go:build windows

package ntfileinfo

import (
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// FILE_INFORMATION_CLASS value for FileBasicInformation.
const fileBasicInformation = 4

// QueryBasicTimestamps opens path for attribute reads only, with no sharing
// and backup semantics so directories work too, and returns its basic file
// information.
func QueryBasicTimestamps(path string) (*Record, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, &OsHandleError{Path: path, Code: windows.ERROR_INVALID_NAME}
	}

	h, err := windows.CreateFile(
		name,
		windows.FILE_READ_ATTRIBUTES,
		0, // share mode: deny all
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return nil, newOsHandleError(path, err)
	}
	defer windows.CloseHandle(h)

	bi, err := queryBasicInformation(h, path)
	if err != nil {
		return nil, err
	}
	return bi.Record(path), nil
}

func queryBasicInformation(h windows.Handle, path string) (BasicInformation, error) {
	// uint64 backing keeps the buffer 8-byte aligned for the kernel probe.
	var raw [basicInformationBufferSize / 8]uint64
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&raw[0])), basicInformationBufferSize)

	var iosb windows.IO_STATUS_BLOCK
	err := windows.NtQueryInformationFile(h, &iosb, unsafe.Pointer(&buf[0]), uint32(len(buf)), fileBasicInformation)
	if err != nil {
		var status windows.NTStatus
		if !errors.As(err, &status) {
			return BasicInformation{}, err
		}
		// informational statuses are returned as errors too
		if !NTSuccess(uint32(status)) {
			return BasicInformation{}, &NtStatusError{Path: path, Status: uint32(status)}
		}
	}

	return DecodeBasicInformation(buf)
}

func newOsHandleError(path string, err error) *OsHandleError {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		errno = windows.ERROR_GEN_FAILURE
	}
	return &OsHandleError{Path: path, Code: errno}
}
