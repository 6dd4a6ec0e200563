package fixtures

import (
	"encoding/binary"
	"math"

	"github.com/kuitang/credits-e2e/internal/errs"
)

const (
	bmpFileHeaderSize = 14
	bmpInfoHeaderSize = 40
	bmpHeaderSize     = bmpFileHeaderSize + bmpInfoHeaderSize
)

// ImageSpec describes a generated bitmap.
type ImageSpec struct {
	Size   int // exact file size in bytes
	Width  int
	Height int
}

// DefaultImage is the oversized-upload fixture: exactly 10 MiB.
var DefaultImage = ImageSpec{Size: 10 * 1024 * 1024, Width: 2000, Height: 1667}

// BMP renders a 24-bit uncompressed bitmap of exactly spec.Size bytes.
// The header advertises spec.Size; the pixel area is filled with a
// three-channel sine gradient so the image is not trivially compressible.
func BMP(spec ImageSpec) ([]byte, error) {
	if spec.Size < bmpHeaderSize {
		return nil, errs.New(errs.InvalidArgument, "fixtures: image size smaller than BMP header")
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, errs.New(errs.InvalidArgument, "fixtures: image dimensions must be positive")
	}
	if int64(spec.Size) > math.MaxUint32 {
		return nil, errs.New(errs.InvalidArgument, "fixtures: image size exceeds BMP limit")
	}

	buf := make([]byte, spec.Size)
	le := binary.LittleEndian

	// File header
	buf[0], buf[1] = 'B', 'M'
	le.PutUint32(buf[2:], uint32(spec.Size))
	le.PutUint32(buf[10:], bmpHeaderSize)

	// Info header
	info := buf[bmpFileHeaderSize:]
	le.PutUint32(info[0:], bmpInfoHeaderSize)
	le.PutUint32(info[4:], uint32(spec.Width))
	le.PutUint32(info[8:], uint32(spec.Height))
	le.PutUint16(info[12:], 1)  // planes
	le.PutUint16(info[14:], 24) // bits per pixel
	le.PutUint32(info[16:], 0)  // BI_RGB
	le.PutUint32(info[20:], uint32(spec.Size-bmpHeaderSize))

	pixels := buf[bmpHeaderSize:]
	n := float64(len(pixels))
	for i := 0; i < len(pixels); i += 3 {
		pos := float64(i) / n
		bgr := [3]float64{
			math.Sin(pos * math.Pi * 4), // blue
			math.Cos(pos * math.Pi * 6), // green
			math.Sin(pos * math.Pi * 8), // red
		}
		// A trailing partial pixel keeps the channels that fit.
		for c := 0; c < 3 && i+c < len(pixels); c++ {
			pixels[i+c] = channel(bgr[c])
		}
	}
	return buf, nil
}

// channel maps [-1, 1] to a byte, wrapping negatives the way a byte
// store of a negative integer does.
func channel(v float64) byte {
	return byte(int(math.Floor(255 * v)))
}
