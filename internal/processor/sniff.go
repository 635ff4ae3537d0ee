package processor

import "bytes"

// detectExtension sniffs well-known magic bytes for uploads that arrive
// without a file extension. Only binary formats are sniffed; text formats
// need a real extension.
func detectExtension(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return ".pdf"
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return ".png"
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return ".jpg"
	case bytes.HasPrefix(data, []byte{0x49, 0x49, 0x2A, 0x00}),
		bytes.HasPrefix(data, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return ".tiff"
	case bytes.HasPrefix(data, []byte("BM")):
		return ".bmp"
	default:
		return ""
	}
}
