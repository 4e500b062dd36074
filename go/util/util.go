// Package util holds small helpers with no better home.
package util

import (
	"io"
	"os"

	"go.yoptima.org/infra/go/sklog"
)

// Close wraps an io.Closer and logs an error if one is returned, for use in
// defer statements where the error would otherwise be dropped.
func Close(c io.Closer) {
	if err := c.Close(); err != nil {
		sklog.Errorf("Failed to Close(): %v", err)
	}
}

// WithWriteFile opens path for writing, hands the writer to fn, and closes the
// file afterwards, reporting the first error encountered. The file is created
// if necessary and truncated if it already exists.
func WithWriteFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
