package kml

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/Alexander-D-Karpov/photokml/internal/models"
)

// WriteFile writes name atomically: fn fills a temporary file in the same
// directory which is synced and renamed over name. On failure the temporary
// file is removed and name is left untouched.
func WriteFile(name string, fn func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".tmp-*")
	if err != nil {
		return &models.SerializationError{Path: name, Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			err = &models.SerializationError{Path: name, Err: err}
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = fn(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}
