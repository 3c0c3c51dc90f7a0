package pkgparser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

// ZipReader is the injected archive-decoding capability
type ZipReader interface {
	Open(data []byte) (Archive, error)
}

// Archive is one opened ZIP payload
type Archive interface {
	// ReadFile returns the contents of the named entry.
	// A missing entry reports ErrEntryNotFound.
	ReadFile(name string) ([]byte, error)
}

// ErrEntryNotFound reports a missing archive entry
var ErrEntryNotFound = fmt.Errorf("archive entry not found")

// NewZipReader returns the production ZipReader adapter
func NewZipReader() ZipReader {
	return &compressReader{}
}

type compressReader struct{}

func (r *compressReader) Open(data []byte) (Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &compressArchive{reader: zr}, nil
}

type compressArchive struct {
	reader *zip.Reader
}

func (a *compressArchive) ReadFile(name string) ([]byte, error) {
	for _, f := range a.reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
}
