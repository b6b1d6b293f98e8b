package diagfmt

import (
	"path/filepath"
	"strings"
)

// autoPathLimit - длина, после которой auto-режим оставляет только имя файла.
const autoPathLimit = 48

func formatPath(path string, mode PathMode) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return filepath.ToSlash(abs)
		}
		return path
	case PathModeBasename:
		return filepath.Base(path)
	default:
		path = strings.TrimPrefix(path, "./")
		if len(path) > autoPathLimit {
			return filepath.Base(path)
		}
		return path
	}
}
