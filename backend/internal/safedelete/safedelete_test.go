package safedelete_test

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bu-isciii/tierarch/backend/internal/safedelete"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
}

func TestDeleteIfIdentical(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "live", "SRV1")
	dst := filepath.Join(dir, "archive", "SRV1")
	writeFile(t, filepath.Join(src, "RAW", "a"), "ACGT")
	writeFile(t, filepath.Join(dst, "RAW", "a"), "ACGA")

	err := safedelete.DeleteIfIdentical(ctx, src, dst)
	require.True(t, errors.Is(err, safedelete.ErrUnsafeDeletion))
	var de *safedelete.DifferError
	require.True(t, errors.As(err, &de))
	require.Equal(t, []string{"RAW/a"}, de.Diff.Differ)
	require.DirExists(t, src)

	err = safedelete.DeleteIfIdentical(ctx, src, filepath.Join(dir, "none"))
	require.True(t, errors.Is(err, safedelete.ErrMissingWitness))
	require.DirExists(t, src)

	writeFile(t, filepath.Join(dst, "RAW", "a"), "ACGT")
	require.NoError(t, safedelete.DeleteIfIdentical(ctx, src, dst))
	require.NoDirExists(t, src)
	require.DirExists(t, dst)

	ents, err := ioutil.ReadDir(filepath.Join(dir, "live"))
	require.NoError(t, err)
	require.Len(t, ents, 0)
}

func TestDeleteArtifact(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "SRV1.tar.zst")
	witness := filepath.Join(dir, "SRV1")
	writeFile(t, file, "zst")

	err := safedelete.DeleteArtifact(file, witness)
	require.True(t, errors.Is(err, safedelete.ErrMissingWitness))
	require.True(t, errors.Is(err, safedelete.ErrUnsafeDeletion))
	require.FileExists(t, file)

	require.NoError(t, os.Mkdir(witness, 0755))
	require.NoError(t, safedelete.DeleteArtifact(file, witness))
	require.NoFileExists(t, file)

	err = safedelete.DeleteArtifact(file, witness)
	require.True(t, os.IsNotExist(err))

	err = safedelete.DeleteRedundantArtifact(witness, witness)
	require.Error(t, err)
	require.DirExists(t, witness)
}

func TestDeleteRedundantArtifact(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "SRV1.tar.zst")
	origin := filepath.Join(dir, "SRV1")
	writeFile(t, file, "zst")

	err := safedelete.DeleteRedundantArtifact(file, origin)
	require.True(t, errors.Is(err, safedelete.ErrMissingWitness))
	require.FileExists(t, file)

	require.NoError(t, os.Mkdir(origin, 0755))
	require.NoError(t, safedelete.DeleteRedundantArtifact(file, origin))
	require.NoFileExists(t, file)
}

func TestRemoveLeftovers(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "live", "SRV1")
	witness := filepath.Join(dir, "archive", "SRV1")
	trash := src + ".deleting.inprogress-8a3a2f7e"
	writeFile(t, filepath.Join(trash, "RAW", "a"), "ACGT")
	writeFile(t, filepath.Join(dir, "live", "SRV10", "a"), "ACGT")

	removed, err := safedelete.RemoveLeftovers(src, witness)
	require.True(t, errors.Is(err, safedelete.ErrMissingWitness))
	require.Empty(t, removed)
	require.DirExists(t, trash)

	require.NoError(t, os.MkdirAll(witness, 0755))
	removed, err = safedelete.RemoveLeftovers(src, witness)
	require.NoError(t, err)
	require.Equal(t, []string{trash}, removed)
	require.NoDirExists(t, trash)
	require.DirExists(t, filepath.Join(dir, "live", "SRV10"))

	removed, err = safedelete.RemoveLeftovers(src, witness)
	require.NoError(t, err)
	require.Empty(t, removed)
}
