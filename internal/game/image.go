package game

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ImageFormat returns the encoding of data ("jpeg", "png" or "webp"). It
// fails with ErrImageRejected for anything else.
func ImageFormat(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrImageRejected)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageRejected, err)
	}
	return format, nil
}
