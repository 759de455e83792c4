package imageprocessor

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrEmptyImage is returned for zero-length uploads.
	ErrEmptyImage = errors.New("image is empty")
	// ErrNotImage is returned when the payload does not sniff as an image.
	ErrNotImage = errors.New("payload is not an image")
)

// Image is an uploaded picture whose content type has been sniffed from its bytes.
type Image struct {
	Data     []byte
	MIMEType string
}

// Prepare sniffs the payload and rejects anything that is not an image.
func Prepare(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	detected := mimetype.Detect(data).String()
	if !IsImageType(detected) {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, detected)
	}
	return &Image{Data: data, MIMEType: detected}, nil
}

// Base64 returns the standard base64 encoding expected by the hosted classifier.
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// IsImageType reports whether a MIME type, possibly with parameters, is image/*.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
