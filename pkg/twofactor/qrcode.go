package twofactor

import (
	"encoding/base64"
	"errors"

	qrcode "github.com/skip2/go-qrcode"
)

// qrDataURI renders content as a PNG data URI for direct use in <img src>.
func qrDataURI(content string, size int) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return "", errors.Join(ErrQRCode, err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
