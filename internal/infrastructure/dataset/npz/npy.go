package npz

import (
	"io"
	"math"
	"math/bits"
	"strings"

	"github.com/sbinet/npyio/npy"

	"github.com/turtacn/MolGraph/pkg/errors"
)

// ---------------------------------------------------------------------------
// DType
// ---------------------------------------------------------------------------

// DType is a NumPy array-protocol type string such as "<f8".
type DType string

// code strips the byte order: "<f8" -> "f8".
func (d DType) code() string {
	if len(d) == 0 {
		return ""
	}
	switch d[0] {
	case '<', '>', '|', '=':
		return string(d[1:])
	}
	return ""
}

// Size returns the element width in bytes, 0 for unsupported types.
func (d DType) Size() int {
	switch d.code() {
	case "i1", "u1", "b1":
		return 1
	case "i2", "u2":
		return 2
	case "f4", "i4", "u4":
		return 4
	case "f8", "i8", "u8":
		return 8
	}
	return 0
}

// IsInteger reports whether values convert to int without loss of meaning.
func (d DType) IsInteger() bool {
	c := d.code()
	return c != "" && (c[0] == 'i' || c[0] == 'u' || c[0] == 'b') && d.Size() > 0
}

// newValues returns a pointer to an empty slice whose element type matches d.
func newValues(d DType) (interface{}, error) {
	switch d.code() {
	case "f4":
		return new([]float32), nil
	case "f8":
		return new([]float64), nil
	case "i1":
		return new([]int8), nil
	case "i2":
		return new([]int16), nil
	case "i4":
		return new([]int32), nil
	case "i8":
		return new([]int64), nil
	case "u1":
		return new([]uint8), nil
	case "u2":
		return new([]uint16), nil
	case "u4":
		return new([]uint32), nil
	case "u8":
		return new([]uint64), nil
	case "b1":
		return new([]bool), nil
	}
	return nil, errors.New(errors.ErrCodeUnsupportedDType, "unsupported dtype").WithDetail(string(d))
}

// ---------------------------------------------------------------------------
// Array
// ---------------------------------------------------------------------------

// Array is one decoded .npy member in C order.
type Array struct {
	Name   string
	DType  DType
	Shape  []int
	values interface{} // *[]float32 ... *[]bool, see newValues
}

// Len returns the total element count.
func (a *Array) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Float64s converts every element to float64.
func (a *Array) Float64s() []float64 {
	switch v := a.values.(type) {
	case *[]float64:
		return append([]float64(nil), *v...)
	case *[]float32:
		return convert(*v, func(x float32) float64 { return float64(x) })
	case *[]uint64:
		return convert(*v, func(x uint64) float64 { return float64(x) })
	}
	ints, _ := a.Int64s()
	return convert(ints, func(x int64) float64 { return float64(x) })
}

// Ints converts every element to int.  Floating point arrays are rejected.
func (a *Array) Ints() ([]int, error) {
	ints, err := a.Int64s()
	if err != nil {
		return nil, err
	}
	return convert(ints, func(x int64) int { return int(x) }), nil
}

// Int64s is Ints with int64 elements.
func (a *Array) Int64s() ([]int64, error) {
	switch v := a.values.(type) {
	case *[]int8:
		return convert(*v, func(x int8) int64 { return int64(x) }), nil
	case *[]int16:
		return convert(*v, func(x int16) int64 { return int64(x) }), nil
	case *[]int32:
		return convert(*v, func(x int32) int64 { return int64(x) }), nil
	case *[]int64:
		return append([]int64(nil), *v...), nil
	case *[]uint8:
		return convert(*v, func(x uint8) int64 { return int64(x) }), nil
	case *[]uint16:
		return convert(*v, func(x uint16) int64 { return int64(x) }), nil
	case *[]uint32:
		return convert(*v, func(x uint32) int64 { return int64(x) }), nil
	case *[]uint64:
		return convert(*v, func(x uint64) int64 { return int64(x) }), nil
	case *[]bool:
		return convert(*v, func(x bool) int64 {
			if x {
				return 1
			}
			return 0
		}), nil
	}
	return nil, errors.New(errors.ErrCodeUnsupportedDType, "expected an integer array").
		WithDetailf("%s has dtype %s", a.Name, a.DType)
}

func convert[S, D any](in []S, f func(S) D) []D {
	out := make([]D, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

// elementCount multiplies out shape.  It fails when the product overflows
// or when elements of size bytes could not fit in limit bytes.
func elementCount(shape []int, size int, limit uint64) (int, error) {
	n := uint64(1)
	for _, d := range shape {
		if d < 0 {
			return 0, errors.New(errors.ErrCodeArchiveFormat, "negative npy dimension").WithDetailf("shape %v", shape)
		}
		hi, lo := bits.Mul64(n, uint64(d))
		if hi != 0 {
			return 0, errors.New(errors.ErrCodeArchiveFormat, "npy shape overflows").WithDetailf("shape %v", shape)
		}
		n = lo
	}
	hi, total := bits.Mul64(n, uint64(size))
	if hi != 0 || total > limit || n > math.MaxInt {
		return 0, errors.New(errors.ErrCodeArchiveFormat, "npy shape exceeds member size").
			WithDetailf("shape %v of %d-byte elements, member holds %d bytes", shape, size, limit)
	}
	return int(n), nil
}

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

// readNPY decodes one .npy stream that is at most limit bytes long.
func readNPY(name string, r io.Reader, limit uint64) (*Array, error) {
	nr, err := npy.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArchiveFormat, "invalid npy header").WithDetail(name)
	}
	descr := nr.Header.Descr
	if descr.Fortran {
		return nil, errors.New(errors.ErrCodeUnsupportedDType, "fortran-ordered arrays are not supported").WithDetail(name)
	}

	arr := &Array{Name: name, DType: DType(strings.TrimSpace(descr.Type)), Shape: append([]int{}, descr.Shape...)}
	if arr.values, err = newValues(arr.DType); err != nil {
		return nil, err
	}
	if _, err := elementCount(arr.Shape, arr.DType.Size(), limit); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArchiveFormat, "invalid npy shape").WithDetail(name)
	}
	if err := nr.Read(arr.values); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArchiveFormat, "cannot decode npy data").WithDetail(name)
	}
	return arr, nil
}
