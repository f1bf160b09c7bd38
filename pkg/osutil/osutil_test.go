// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, SafeWriteFile(file, []byte("first")))
	require.NoError(t, SafeWriteFile(file, []byte("second")))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
	assert.True(t, IsExist(file))
	assert.False(t, IsExist(file+".other"))
}

func TestListDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteFile(filepath.Join(dir, "b"), nil))
	require.NoError(t, WriteFile(filepath.Join(dir, "a"), nil))
	require.NoError(t, MkdirAll(filepath.Join(dir, "subdir")))
	files, err := ListDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, files)
}
