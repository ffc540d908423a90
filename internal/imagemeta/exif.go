// Package imagemeta reads capture metadata from report photos.
package imagemeta

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/iliyamo/fleet-management/internal/model"
)

// ErrNoCaptureTime is returned when the image carries EXIF data but no
// usable DateTimeOriginal tag. The plain DateTime tag records the last
// modification and does not count.
var ErrNoCaptureTime = errors.New("image has no capture timestamp")

// Extractor decodes the EXIF block of JPEG or TIFF images.
type Extractor struct{}

func NewExtractor() Extractor { return Extractor{} }

// Extract returns the capture time (DateTimeOriginal only), the camera make
// and model and the GPS position when present.
func (Extractor) Extract(image []byte) (model.ImageMetadata, error) {
	var meta model.ImageMetadata
	if len(image) == 0 {
		return meta, errors.New("empty image")
	}
	x, err := exif.Decode(bytes.NewReader(image))
	if err != nil {
		return meta, fmt.Errorf("read exif: %w", err)
	}

	taken, err := originalTime(x)
	if err != nil {
		return meta, err
	}
	meta.CapturedAt = taken
	meta.CameraMake = stringTag(x, exif.Make)
	meta.CameraModel = stringTag(x, exif.Model)
	if lat, long, err := x.LatLong(); err == nil {
		meta.Latitude = &lat
		meta.Longitude = &long
	}
	return meta, nil
}

const exifTimeLayout = "2006:01:02 15:04:05"

// originalTime parses DateTimeOriginal in the zone the GPS block gives,
// local time otherwise.
func originalTime(x *exif.Exif) (time.Time, error) {
	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return time.Time{}, ErrNoCaptureTime
	}
	raw, err := tag.StringVal()
	if err != nil {
		return time.Time{}, ErrNoCaptureTime
	}
	raw = strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	loc := time.Local
	if tz, _ := x.TimeZone(); tz != nil {
		loc = tz
	}
	taken, err := time.ParseInLocation(exifTimeLayout, raw, loc)
	if err != nil || taken.IsZero() {
		return time.Time{}, fmt.Errorf("%w: unparseable DateTimeOriginal %q", ErrNoCaptureTime, raw)
	}
	return taken, nil
}

func stringTag(x *exif.Exif, name exif.FieldName) *string {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	s, err := tag.StringVal()
	if err != nil {
		return nil
	}
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	if s == "" {
		return nil
	}
	return &s
}
