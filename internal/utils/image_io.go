package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Encoding family names as reported by image.DecodeConfig.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// DefaultJPEGQuality is used when a lossy output quality is not configured.
const DefaultJPEGQuality = 92

// SupportedImageExtensions lists supported file extensions for loading.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// DecodeImage decodes raw JPEG/PNG/BMP/TIFF/WebP bytes and reports the input
// format. With autoOrient the EXIF orientation tag of JPEG photos is applied,
// so phone pictures arrive upright.
func DecodeImage(data []byte, autoOrient bool) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &ImageError{Op: "decode", Err: errors.New("empty input")}
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", &ImageError{Op: "decode", Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", &ImageError{Op: "decode", Err: fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(autoOrient))
	if err != nil {
		return nil, "", &ImageError{Op: "decode", Err: err}
	}
	return img, format, nil
}

// OutputFormat maps an input encoding to the encoding used for results: JPEG
// stays JPEG, everything else is written losslessly as PNG.
func OutputFormat(inputFormat string) string {
	if inputFormat == FormatJPEG {
		return FormatJPEG
	}
	return FormatPNG
}

// Extension returns the file extension (with dot) for an output format.
func Extension(format string) string {
	if format == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}

// FormatFromPath maps a file extension to an encoding family: FormatJPEG for
// .jpg/.jpeg, FormatPNG for .png and "" for anything else.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".png":
		return FormatPNG
	}
	return ""
}

// ContentType returns the MIME type for an output format.
func ContentType(format string) string {
	if format == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// EncodeImage writes img in the given output format. quality applies to JPEG
// only; values outside 1..100 fall back to DefaultJPEGQuality.
func EncodeImage(w io.Writer, img image.Image, format string, quality int) error {
	if img == nil {
		return &ImageError{Op: "encode", Err: errors.New("nil image")}
	}
	var err error
	switch format {
	case FormatJPEG:
		if quality < 1 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	default:
		err = imaging.Encode(w, img, imaging.PNG)
	}
	if err != nil {
		return &ImageError{Op: "encode", Err: err}
	}
	return nil
}
