// Package npz reads NumPy .npz archives: zip files whose members are .npy
// arrays named after the dataset columns.  Members are decoded with
// github.com/sbinet/npyio/npy; the zip layer stays here so every member is
// bounded by its declared uncompressed size.
package npz

import (
	"archive/zip"
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/turtacn/MolGraph/pkg/errors"
)

// Archive is a fully decoded .npz file.
type Archive struct {
	arrays map[string]*Array
}

// Open reads the archive at path.
func Open(path string) (*Archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArchiveFormat, "cannot open npz archive").WithDetail(path)
	}
	defer zr.Close()
	return readZip(&zr.Reader)
}

// Read decodes an archive from r, which holds size bytes.
func Read(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArchiveFormat, "invalid npz archive")
	}
	return readZip(zr)
}

// ReadBytes decodes an archive held in memory.
func ReadBytes(data []byte) (*Archive, error) {
	return Read(bytes.NewReader(data), int64(len(data)))
}

func readZip(zr *zip.Reader) (*Archive, error) {
	a := &Archive{arrays: make(map[string]*Array, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := strings.TrimSuffix(f.Name, ".npy")

		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeArchiveFormat, "cannot open npz member").WithDetail(f.Name)
		}
		arr, err := readNPY(name, rc, f.UncompressedSize64)
		rc.Close()
		if err != nil {
			return nil, err
		}
		a.arrays[name] = arr
	}
	return a, nil
}

// Names returns the member names in sorted order, without the .npy suffix.
func (a *Archive) Names() []string {
	out := make([]string, 0, len(a.arrays))
	for name := range a.arrays {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Has reports whether the archive contains name.
func (a *Archive) Has(name string) bool {
	_, ok := a.arrays[name]
	return ok
}

// Array returns the member called name.
func (a *Archive) Array(name string) (*Array, error) {
	arr, ok := a.arrays[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeArchiveMissingKey, "array not found in archive").WithDetail(name)
	}
	return arr, nil
}
