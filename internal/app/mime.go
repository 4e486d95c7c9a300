package app

import (
	"log/slog"
	"mime"
)

// staticMimeTypes covers the assets under web/static. Minimal containers
// ship without /etc/mime.types, so the file server would otherwise sniff them.
var staticMimeTypes = map[string]string{
	".css":  "text/css; charset=utf-8",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

func init() {
	for ext, typ := range staticMimeTypes {
		if err := ensureMimeType(ext, typ); err != nil {
			slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
		}
	}
}

func ensureMimeType(ext, typ string) error {
	if mime.TypeByExtension(ext) != "" {
		return nil
	}
	return mime.AddExtensionType(ext, typ)
}
