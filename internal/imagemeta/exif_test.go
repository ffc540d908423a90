package imagemeta_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fleet-management/internal/imagemeta"
)

type asciiTag struct {
	id    uint16
	value string
}

// tiffImage builds a little-endian TIFF whose IFD0 holds ifd0 and, when
// exifIFD is not empty, a pointer to an Exif sub-IFD holding exifIFD. Tags
// must be given sorted by id.
func tiffImage(ifd0, exifIFD []asciiTag) []byte {
	le := binary.LittleEndian
	ifdSize := func(n int) uint32 { return uint32(2 + 12*n + 4) }

	n0 := len(ifd0)
	if len(exifIFD) > 0 {
		n0++
	}
	exifOffset := 8 + ifdSize(n0)
	dataOffset := exifOffset
	if len(exifIFD) > 0 {
		dataOffset += ifdSize(len(exifIFD))
	}

	var buf, data bytes.Buffer
	writeIFD := func(tags []asciiTag, pointer bool) {
		count := len(tags)
		if pointer {
			count++
		}
		_ = binary.Write(&buf, le, uint16(count))
		for _, tag := range tags {
			val := append([]byte(tag.value), 0)
			_ = binary.Write(&buf, le, tag.id)
			_ = binary.Write(&buf, le, uint16(2)) // ASCII
			_ = binary.Write(&buf, le, uint32(len(val)))
			if len(val) <= 4 {
				padded := make([]byte, 4)
				copy(padded, val)
				buf.Write(padded)
				continue
			}
			_ = binary.Write(&buf, le, dataOffset+uint32(data.Len()))
			data.Write(val)
		}
		if pointer {
			_ = binary.Write(&buf, le, uint16(tagExifIFD))
			_ = binary.Write(&buf, le, uint16(4)) // LONG
			_ = binary.Write(&buf, le, uint32(1))
			_ = binary.Write(&buf, le, exifOffset)
		}
		_ = binary.Write(&buf, le, uint32(0))
	}

	buf.WriteString("II")
	_ = binary.Write(&buf, le, uint16(42))
	_ = binary.Write(&buf, le, uint32(8))
	writeIFD(ifd0, len(exifIFD) > 0)
	if len(exifIFD) > 0 {
		writeIFD(exifIFD, false)
	}
	buf.Write(data.Bytes())
	return buf.Bytes()
}

const (
	tagMake             = 0x010F
	tagModel            = 0x0110
	tagDateTime         = 0x0132
	tagExifIFD          = 0x8769
	tagDateTimeOriginal = 0x9003
)

func TestExtract(t *testing.T) {
	img := tiffImage(
		[]asciiTag{
			{tagMake, "Samsung"},
			{tagModel, "SM-A515F"},
			{tagDateTime, "2024:06:12 17:00:00"},
		},
		[]asciiTag{{tagDateTimeOriginal, "2024:06:10 08:30:00"}},
	)

	meta, err := imagemeta.NewExtractor().Extract(img)
	require.NoError(t, err)
	// the capture time wins over the later modification time
	assert.Equal(t, "2024-06-10 08:30:00", meta.CapturedAt.Format("2006-01-02 15:04:05"))
	require.NotNil(t, meta.CameraMake)
	assert.Equal(t, "Samsung", *meta.CameraMake)
	require.NotNil(t, meta.CameraModel)
	assert.Equal(t, "SM-A515F", *meta.CameraModel)
	assert.Nil(t, meta.Latitude)
}

func TestExtract_NoCaptureTime(t *testing.T) {
	img := tiffImage([]asciiTag{{tagMake, "Samsung"}}, nil)

	_, err := imagemeta.NewExtractor().Extract(img)
	assert.ErrorIs(t, err, imagemeta.ErrNoCaptureTime)
}

func TestExtract_ModificationTimeIsNotCaptureTime(t *testing.T) {
	img := tiffImage([]asciiTag{{tagDateTime, "2024:06:10 08:30:00"}}, nil)

	_, err := imagemeta.NewExtractor().Extract(img)
	assert.ErrorIs(t, err, imagemeta.ErrNoCaptureTime)
}

func TestExtract_UnparseableCaptureTime(t *testing.T) {
	img := tiffImage(nil, []asciiTag{{tagDateTimeOriginal, "yesterday-ish"}})

	_, err := imagemeta.NewExtractor().Extract(img)
	assert.ErrorIs(t, err, imagemeta.ErrNoCaptureTime)
}

func TestExtract_NotAnImage(t *testing.T) {
	ex := imagemeta.NewExtractor()

	_, err := ex.Extract(nil)
	assert.Error(t, err)
	_, err = ex.Extract([]byte("definitely not a jpeg"))
	assert.Error(t, err)
}
