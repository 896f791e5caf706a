package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/seek/pkg/seek/output"
)

func writeTree(t *testing.T, root string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(root, 0o755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}
}

func emptyResult() *output.Result {
	return output.NewResult("", "", nil, 100, 0)
}
