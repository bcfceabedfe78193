package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"image/png"
)

// ExitSignPNG contains the raw PNG bytes of the reference exit sign used by
// the on-device template classifier.
//
//go:embed exit_sign.png
var ExitSignPNG []byte

// ExitSignImage decodes the embedded PNG into an image.Image.
func ExitSignImage() (image.Image, error) {
	if len(ExitSignPNG) == 0 {
		return nil, fmt.Errorf("embedded exit_sign.png is empty")
	}
	img, err := png.Decode(bytes.NewReader(ExitSignPNG))
	if err != nil {
		return nil, fmt.Errorf("decode exit_sign.png: %w", err)
	}
	return img, nil
}
