package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// StdioPath names standard input or output in file arguments.
const StdioPath = "-"

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DirExists checks if a directory exists
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ReadInput reads a file, or stdin when path is "-".
func ReadInput(path string, stdin io.Reader) ([]byte, error) {
	if path == StdioPath {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	if DirExists(path) {
		return nil, NewUserError(
			fmt.Sprintf("%s is a directory", path),
			"Pass the path of a JSON trace file, or - to read from stdin",
			nil,
		)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewUserError(
				fmt.Sprintf("Trace file not found: %s", path),
				"Check the path, or pipe the trace in with: agtrace analyze -",
				err,
			)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// WriteFile writes content to a file, creating directories if needed
func WriteFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return os.WriteFile(path, content, 0644)
}

// OpenOutput returns stdout for "" or "-", otherwise a created file. The
// returned close function is always safe to call.
func OpenOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == StdioPath {
		return stdout, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}
