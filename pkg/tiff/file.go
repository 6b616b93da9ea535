package tiff

import (
	"os"
)

// OpenFile opens (or creates) path and returns a writer bound to it. An
// existing file is parsed so its planes can be overwritten.
func OpenFile(path string, meta MetadataSource, opts ...Option) (*Writer, error) {
	w, err := NewWriter(meta, opts...)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, ioErr("open", err)
	}
	if err := w.Open(NewFileStream(f), path); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// CreateFile truncates path and returns a writer bound to it
func CreateFile(path string, meta MetadataSource, opts ...Option) (*Writer, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, ioErr("create", err)
	}
	return OpenFile(path, meta, opts...)
}
