package upload

import (
	"errors"
	"net/http"
)

var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidateImageBySniff checks the leading bytes against the whitelist of
// image types accepted for clinical uploads. Returns the detected mime or
// an error. SVG/HTML style content is rejected regardless of claimed type.
func ValidateImageBySniff(head []byte) (string, error) {
	if len(head) == 0 {
		return "", errors.New("Formato de imagen no válido. Use JPEG, PNG o WebP")
	}

	detected := http.DetectContentType(head)
	if allowedMime[detected] {
		return detected, nil
	}
	return "", errors.New("Formato de imagen no válido. Use JPEG, PNG o WebP")
}

// ExtensionForContentType maps an image mime type to its storage extension.
func ExtensionForContentType(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}
