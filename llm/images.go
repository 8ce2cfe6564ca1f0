package llm

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EncodeImageFile reads an image file and returns it as a base64 data URI.
func EncodeImageFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := "image/jpeg"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mime = "image/png"
	case ".webp":
		mime = "image/webp"
	case ".gif":
		mime = "image/gif"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(b)), nil
}

// SplitDataURI separates a data URI into its MIME type and base64 payload.
// Inputs that are not data URIs are treated as raw base64 JPEG data.
func SplitDataURI(uri string) (mime, data string) {
	if !strings.HasPrefix(uri, "data:") {
		return "image/jpeg", uri
	}
	rest := strings.TrimPrefix(uri, "data:")
	mime, data, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return "image/jpeg", rest
	}
	return mime, data
}
