package util

import (
	"errors"
	"strings"
)

const maxFileNameLen = 255

// SanitizeFileName makes an uploaded filing name safe to embed in an object
// key: path separators are replaced, traversal patterns and oversize names
// rejected.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" || len(s) > maxFileNameLen {
		return "", errors.New("invalid file name")
	}
	return s, nil
}
