// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package osutil contains the file system helpers used by the tools.
package osutil

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultDirPerm  = 0755
	DefaultFilePerm = 0644
)

// IsExist returns true if the file name exists.
func IsExist(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func MkdirAll(dir string) error {
	return os.MkdirAll(dir, DefaultDirPerm)
}

func WriteFile(filename string, data []byte) error {
	return os.WriteFile(filename, data, DefaultFilePerm)
}

// WriteTempFile writes data to a temp file in the same dir as filename
// and returns its name.
func WriteTempFile(filename string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create a temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write a temp file: %w", err)
	}
	f.Close()
	return f.Name(), nil
}

// Rename is an atomic replacement of the destination file.
func Rename(oldFile, newFile string) error {
	return os.Rename(oldFile, newFile)
}

// SafeWriteFile writes data via a temp file + rename, so that readers never
// observe a partially written file.
func SafeWriteFile(filename string, data []byte) error {
	tmp, err := WriteTempFile(filename, data)
	if err != nil {
		return err
	}
	return Rename(tmp, filename)
}

// ListDir returns the names of regular files in dir, sorted.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, ent := range entries {
		if ent.Type().IsRegular() {
			files = append(files, ent.Name())
		}
	}
	return files, nil
}
