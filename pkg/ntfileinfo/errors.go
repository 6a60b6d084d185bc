package ntfileinfo

import (
	"fmt"
	"syscall"
)

// facilityNTBit marks an HRESULT as carrying an NTSTATUS.
const facilityNTBit = 0x10000000

// NTSuccess reports whether status is a success or informational NTSTATUS.
func NTSuccess(status uint32) bool {
	return status < 0x80000000
}

// HResultFromNT is the HRESULT_FROM_NT macro.
func HResultFromNT(status uint32) uint32 {
	return status | facilityNTBit
}

// OsHandleError is returned when the handle to the path cannot be opened.
type OsHandleError struct {
	Path string
	Code syscall.Errno
}

func (e *OsHandleError) Error() string {
	return fmt.Sprintf("open %s: %v (error %d)", e.Path, e.Code, uint32(e.Code))
}

// Unwrap exposes the errno so errors.Is(err, fs.ErrNotExist) and friends work.
func (e *OsHandleError) Unwrap() error {
	return e.Code
}

// NtStatusError is returned when the information query reports a failure
// status.
type NtStatusError struct {
	Path   string
	Status uint32
}

func (e *NtStatusError) Error() string {
	return fmt.Sprintf("query basic information %s: NTSTATUS 0x%08X (HRESULT 0x%08X)", e.Path, e.Status, e.HResult())
}

// HResult returns the status translated into an HRESULT.
func (e *NtStatusError) HResult() uint32 {
	return HResultFromNT(e.Status)
}
