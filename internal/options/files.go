package options

import (
	"path/filepath"
	"strings"
)

// supportedExtensions is the file-format allow-list. Entries are lowercase
// and include the leading dot.
var supportedExtensions = []string{
	".pdf", ".docx", ".pptx", ".html", ".htm",
	".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp",
}

// SupportedExtensions returns the allow-list in presentation order.
func SupportedExtensions() []string {
	out := make([]string, len(supportedExtensions))
	copy(out, supportedExtensions)
	return out
}

// ExtensionSupported reports whether ext (with or without leading dot,
// any case) is in the allow-list.
func ExtensionSupported(ext string) bool {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return contains(supportedExtensions, ext)
}

// ExtensionOf returns the lowercase extension of filename, including the dot.
func ExtensionOf(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
