//go:build !windows

package ntfileinfo

import (
	"errors"
	"fmt"
)

// QueryBasicTimestamps is only implemented on Windows.
func QueryBasicTimestamps(path string) (*Record, error) {
	return nil, fmt.Errorf("query basic information %s: %w", path, errors.ErrUnsupported)
}
