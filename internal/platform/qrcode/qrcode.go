// Package qrcode renders invite links as PNG QR codes.
package qrcode

import (
	"fmt"
	"net/url"

	goqrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// JoinURL is the link a participant scans to join with code.
func JoinURL(publicURL, code string) string {
	return publicURL + "/join?code=" + url.QueryEscape(code)
}

// PNG encodes content at medium error correction. size is the image width in pixels.
func PNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	png, err := goqrcode.Encode(content, goqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
