package onnx

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/camtools/backdrop/config"
)

var pathOnce sync.Once
var libPath string

func LibPath() string {
	pathOnce.Do(func() {
		libPath = loadLibPath()
		if libPath == "" {
			slog.Error("ONNX Runtime library path could not be determined for this OS")
		} else {
			slog.Info("Using ONNX Runtime library", slog.String("path", libPath))
		}
	})
	return libPath
}

func loadLibPath() string {
	if config.C().Libonnx != "" {
		return config.C().Libonnx
	}
	switch runtime.GOOS {
	case "linux":
		path := filepath.Join("onnxlibs", fmt.Sprintf("libonnxruntime_%s.so", runtime.GOARCH))
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return "/usr/lib/libonnxruntime.so"
	case "darwin":
		return "/usr/local/lib/libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return ""
	}
}
