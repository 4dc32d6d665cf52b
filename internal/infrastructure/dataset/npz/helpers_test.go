package npz

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// npyMagic prefixes every .npy stream.
const npyMagic = "\x93NUMPY"

// npyBytes encodes one .npy stream the way numpy.save does.
func npyBytes(t *testing.T, version byte, descr string, fortran bool, shape []int, payload []byte) []byte {
	t.Helper()

	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprint(d)
	}
	shapeStr := "(" + strings.Join(dims, ", ") + ")"
	if len(shape) == 1 {
		shapeStr = fmt.Sprintf("(%d,)", shape[0])
	}
	order := "False"
	if fortran {
		order = "True"
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': %s, }", descr, order, shapeStr)

	lenBytes := 2
	if version >= 2 {
		lenBytes = 4
	}
	preamble := len(npyMagic) + 2 + lenBytes
	pad := 64 - (preamble+len(header)+1)%64
	header += strings.Repeat(" ", pad%64) + "\n"

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.Write([]byte{version, 0})
	if version >= 2 {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(header))))
	} else {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(header))))
	}
	buf.WriteString(header)
	buf.Write(payload)
	return buf.Bytes()
}

// encode packs fixed-size values with the given byte order.
func encode(t *testing.T, order binary.ByteOrder, values interface{}) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, order, values))
	return buf.Bytes()
}

// zipBytes builds an .npz archive from name -> .npy stream.
func zipBytes(t *testing.T, members map[string][]byte) []byte {
	t.Helper()
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name + ".npy")
		require.NoError(t, err)
		_, err = w.Write(members[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// datasetArchive returns a two-molecule archive: a dimer and a triangle,
// padded to three atoms, with float32 positions.
func datasetArchive(t *testing.T) []byte {
	t.Helper()
	le := binary.LittleEndian
	r := []float32{
		0, 0, 0, 1, 0, 0, 0, 0, 0,
		0, 0, 0, 1, 0, 0, 0, 1, 0,
	}
	return zipBytes(t, map[string][]byte{
		"R":   npyBytes(t, 1, "<f4", false, []int{2, 3, 3}, encode(t, le, r)),
		"N":   npyBytes(t, 1, "<i8", false, []int{2}, encode(t, le, []int64{2, 3})),
		"Z":   npyBytes(t, 1, "|u1", false, []int{2, 3}, []byte{1, 1, 0, 6, 1, 1}),
		"id":  npyBytes(t, 1, "<i4", false, []int{2}, encode(t, le, []int32{7, 9})),
		"U0":  npyBytes(t, 1, "<f8", false, []int{2}, encode(t, le, []float64{-1.5, -2.25})),
		"foo": npyBytes(t, 1, "<f8", false, []int{1}, encode(t, le, []float64{3})),
	})
}
