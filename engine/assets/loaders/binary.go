package loaders

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// BinaryLoader reads a file as raw bytes.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return buf, nil
}
