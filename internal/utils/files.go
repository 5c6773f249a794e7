package utils

import (
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// allowedImageTypes maps sniffed content types to the extension we store.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// UniqueFilename generates a safe unique filename for an upload,
// e.g. "1700000000_3f2a9c1e_meter-photo.jpg".
func UniqueFilename(original, ext string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	base = strings.Trim(unsafeFilenameChars.ReplaceAllString(base, "-"), "-.")
	if len(base) > 40 {
		base = base[:40]
	}
	if base == "" {
		base = "upload"
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d_%s_%s%s", time.Now().Unix(), id, base, ext)
}

// ImageExtension sniffs data and returns the extension to store it under.
// ok is false for anything but JPEG and PNG.
func ImageExtension(data []byte) (ext, contentType string, ok bool) {
	contentType = http.DetectContentType(data)
	ext, ok = allowedImageTypes[contentType]
	return ext, contentType, ok
}

// PublicURL joins the server base URL and a stored upload name.
func PublicURL(baseURL, filename string) string {
	return strings.TrimRight(baseURL, "/") + "/uploads/" + filename
}
