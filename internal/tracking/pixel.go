package tracking

import "encoding/base64"

const pixelBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// PixelPNG 1x1 透明 PNG
var PixelPNG = mustDecodePixel()

func mustDecodePixel() []byte {
	data, err := base64.StdEncoding.DecodeString(pixelBase64)
	if err != nil {
		panic(err)
	}
	return data
}
