package handler

import "os"

// FilePullHandler is the local-file Pull-handler: Read returns the
// contents of a path on disk.
type FilePullHandler struct {
	Path string
}

// Read implements Reader.
func (f FilePullHandler) Read() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
