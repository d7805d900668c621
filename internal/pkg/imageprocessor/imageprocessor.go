package imageprocessor

import (
	"bytes"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

const (
	// ThumbnailSize is the bounding box for generated thumbnails.
	ThumbnailSize = 320
	// thumbnailQuality is the lossy WebP quality for thumbnails.
	thumbnailQuality = 80
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// BuildThumbnail decodes the image, fits it into the thumbnail bounding box
// and encodes it as lossy WebP.
func BuildThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Fit(img, ThumbnailSize, ThumbnailSize, imaging.Lanczos)

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, thumbnailQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to create webp encoder options: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, thumb, options); err != nil {
		return nil, fmt.Errorf("failed to encode webp thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// ExifInfo is the subset of EXIF data kept on image records.
type ExifInfo struct {
	CameraModel string
	TakenAt     *time.Time
}

// ExtractExif pulls camera model and capture time from JPEG bytes. Images
// without EXIF (PNG, WebP, stripped JPEGs) yield an empty result, not an
// error.
func ExtractExif(data []byte) ExifInfo {
	var info ExifInfo

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return info
	}

	if m, err := x.Get(exif.Model); err == nil {
		if s, err := m.StringVal(); err == nil {
			info.CameraModel = s
		}
	}
	if t, err := x.DateTime(); err == nil {
		info.TakenAt = &t
	}
	return info
}
