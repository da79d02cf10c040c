package driver_local_test

import (
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/bu-isciii/tierarch/backend/internal/tiersync/driver_local"
	"github.com/bu-isciii/tierarch/backend/internal/tiersync/drivers"
	"github.com/bu-isciii/tierarch/backend/pkg/mulog"
	"github.com/stretchr/testify/require"
)

func TestSync(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.tar.zst")
	dst := filepath.Join(dir, "b.tar.zst")
	require.NoError(t, ioutil.WriteFile(src, []byte("archive"), 0640))

	var d drivers.Synchronizer = driver_local.New(
		mulog.Discard{}, driver_local.Config{BandwidthLimit: 1024 * 1024},
	)
	require.Equal(t, "local", d.Name())
	require.NoError(t, d.Sync(context.Background(), src, dst))
	dat, err := ioutil.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "archive", string(dat))

	// Overwrite.
	require.NoError(t, ioutil.WriteFile(src, []byte("archive2"), 0640))
	require.NoError(t, d.Sync(context.Background(), src, dst))
	dat, err = ioutil.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "archive2", string(dat))

	ents, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, ents, 2)
}

func TestSyncErrors(t *testing.T) {
	dir := t.TempDir()
	d := driver_local.New(mulog.Discard{}, driver_local.Config{})

	err := d.Sync(context.Background(),
		filepath.Join(dir, "missing"), filepath.Join(dir, "dst"),
	)
	require.True(t, errors.Is(err, drivers.ErrTransport))

	src := filepath.Join(dir, "src")
	require.NoError(t, ioutil.WriteFile(src, []byte("x"), 0644))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = d.Sync(ctx, src, filepath.Join(dir, "dst"))
	require.True(t, errors.Is(err, drivers.ErrTransport))
	require.NoFileExists(t, filepath.Join(dir, "dst"))

	ents, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, ents, 1)
}
