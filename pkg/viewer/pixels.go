package viewer

// ExpandGrayToRGBA re-expands a single-channel plane to 4-channel
// opaque grayscale pixels suitable for a display surface upload.
func ExpandGrayToRGBA(plane []byte) []byte {
	pixels := make([]byte, len(plane)*4)
	for i, v := range plane {
		pixels[i*4] = v
		pixels[i*4+1] = v
		pixels[i*4+2] = v
		pixels[i*4+3] = 255
	}
	return pixels
}
