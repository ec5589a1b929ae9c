package storage

import (
	"path/filepath"
	"strings"
)

var allowedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".pdf": true, ".doc": true, ".docx": true,
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tiff": true, ".webp": true,
}

// Allowed reports whether the upload extension is on the allow-list.
func Allowed(fileName string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(fileName))]
}

func isImage(fileName string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(fileName))]
}

// SafeName strips directories and anything outside [A-Za-z0-9._-].
func SafeName(fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	name := strings.TrimLeft(b.String(), ".")
	if name == "" {
		return "file"
	}
	return name
}
