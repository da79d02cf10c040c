package dircmp_test

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bu-isciii/tierarch/backend/internal/dircmp"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, ioutil.WriteFile(p, []byte(content), 0644))
	}
}

var tree = map[string]string{
	"RAW/a.fastq":    "ACGT",
	"RAW/b.fastq":    "TTTT",
	"RESULTS/report": "ok",
}

func TestIdentical(t *testing.T) {
	dir := t.TempDir()
	left := filepath.Join(dir, "left")
	right := filepath.Join(dir, "right")
	writeTree(t, left, tree)
	writeTree(t, right, tree)
	require.NoError(t, os.Symlink("RAW", filepath.Join(left, "l")))
	require.NoError(t, os.Symlink("RAW", filepath.Join(right, "l")))

	d, err := dircmp.Compare(context.Background(), left, right)
	require.NoError(t, err)
	require.True(t, d.Identical(), d.String())
}

func TestDifferences(t *testing.T) {
	dir := t.TempDir()
	left := filepath.Join(dir, "left")
	right := filepath.Join(dir, "right")
	writeTree(t, left, tree)
	writeTree(t, right, tree)

	// One byte flipped, same size.
	writeTree(t, right, map[string]string{"RAW/b.fastq": "TTTA"})
	writeTree(t, left, map[string]string{"only-left": "x"})
	writeTree(t, right, map[string]string{"only/right": "x"})
	writeTree(t, left, map[string]string{"kind": "file"})
	require.NoError(t, os.Mkdir(filepath.Join(right, "kind"), 0755))
	require.NoError(t, os.Symlink("RAW", filepath.Join(left, "l")))
	require.NoError(t, os.Symlink("RESULTS", filepath.Join(right, "l")))

	d, err := dircmp.Compare(context.Background(), left, right)
	require.NoError(t, err)
	require.False(t, d.Identical())
	require.Equal(t, []string{"only-left"}, d.LeftOnly)
	require.Equal(t, []string{"only"}, d.RightOnly)
	require.Equal(t, []string{"RAW/b.fastq", "kind", "l"}, d.Differ)
	require.Equal(t, "1 only left, 1 only right, 3 differ", d.String())
}

func TestLargeFileLastByte(t *testing.T) {
	dir := t.TempDir()
	left := filepath.Join(dir, "left")
	right := filepath.Join(dir, "right")
	big := make([]byte, 3*1024*1024+17)
	writeTree(t, left, map[string]string{"big": string(big)})
	big[len(big)-1] = 1
	writeTree(t, right, map[string]string{"big": string(big)})

	d, err := dircmp.Compare(context.Background(), left, right)
	require.NoError(t, err)
	require.Equal(t, []string{"big"}, d.Differ)
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := dircmp.Compare(context.Background(), dir, filepath.Join(dir, "no"))
	require.True(t, os.IsNotExist(err))

	writeTree(t, dir, map[string]string{"f": "x"})
	_, err = dircmp.Compare(context.Background(), dir, filepath.Join(dir, "f"))
	require.Error(t, err)
}
