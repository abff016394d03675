package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	errImageTooLarge    = errors.New("image exceeds inline size limit")
	errImageUnsupported = errors.New("image type cannot be displayed inline")
)

// inlineImageTypes are the image types browsers render from data URIs.
var inlineImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageInliner turns embedded image bytes into self-contained data URIs.
// It knows nothing about document structure.
type ImageInliner struct {
	MaxBytes int64
}

// Inline returns a base64 data URI for data. An empty contentType is sniffed.
func (i ImageInliner) Inline(data []byte, contentType string) (string, error) {
	if i.MaxBytes > 0 && int64(len(data)) > i.MaxBytes {
		return "", fmt.Errorf("%w: %d bytes", errImageTooLarge, len(data))
	}
	contentType = normalizeImageType(contentType)
	if contentType == "" {
		contentType = normalizeImageType(http.DetectContentType(data))
	}
	if !inlineImageTypes[contentType] {
		return "", fmt.Errorf("%w: %s", errImageUnsupported, contentType)
	}
	return DataURI(data, contentType), nil
}

// DataURI encodes data as a base64 data URI tagged with contentType.
func DataURI(data []byte, contentType string) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func normalizeImageType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	switch contentType {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "image/x-png":
		return "image/png"
	}
	return contentType
}
