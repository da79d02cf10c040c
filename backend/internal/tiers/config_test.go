package tiers_test

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bu-isciii/tierarch/backend/internal/tiers"
	"github.com/bu-isciii/tierarch/backend/pkg/mulog"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
}

func mkTiers(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	live := filepath.Join(dir, "live")
	archive := filepath.Join(dir, "archive")
	require.NoError(t, os.Mkdir(live, 0755))
	require.NoError(t, os.Mkdir(archive, 0755))
	return dir, live, archive
}

func TestLoadYml(t *testing.T) {
	dir, live, archive := mkTiers(t)
	writeFile(t, filepath.Join(dir, tiers.ConfigFileYml), fmt.Sprintf(`
liveRoot: %s
archiveRoot: %s
sync:
  driver: rsync
  rsyncOptions: ["--archive", "--checksum"]
  bandwidthLimit: 10m
inventory:
  url: https://iskylims.example.org/drylab/api/
  timeout: 5s
`, live, archive))

	cfg, err := tiers.Load(mulog.Discard{}, dir)
	require.NoError(t, err)
	require.Equal(t, live, cfg.LiveRoot)
	require.Equal(t, archive, cfg.ArchiveRoot)
	require.Equal(t, tiers.DefaultArchiveExt, cfg.ArchiveExt)
	require.Equal(t, "rsync", cfg.Sync.Driver)
	require.Equal(t, []string{"--archive", "--checksum"}, cfg.Sync.RsyncOptions)

	bw, err := cfg.BandwidthLimit()
	require.NoError(t, err)
	require.Equal(t, uint64(10*1024*1024), bw)

	to, err := cfg.InventoryTimeout()
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, to)
}

func TestLoadHcl(t *testing.T) {
	dir, live, archive := mkTiers(t)
	writeFile(t, filepath.Join(dir, tiers.ConfigFileHcl), fmt.Sprintf(`
liveRoot = "%s"
archiveRoot = "%s"
archiveExt = ".tar.gz"
`, live, archive))

	cfg, err := tiers.Load(mulog.Discard{}, dir)
	require.NoError(t, err)
	require.Equal(t, "tar.gz", cfg.ArchiveExt)
	require.Equal(t, tiers.DefaultSyncDriver, cfg.Sync.Driver)
}

func TestLoadErrors(t *testing.T) {
	dir, live, archive := mkTiers(t)

	_, err := tiers.Load(mulog.Discard{}, dir)
	require.True(t, errors.Is(err, tiers.ErrConfig))

	for _, c := range []string{
		fmt.Sprintf("liveRoot: %s\n", live),
		fmt.Sprintf("liveRoot: relative\narchiveRoot: %s\n", archive),
		fmt.Sprintf("liveRoot: %s\narchiveRoot: %s/missing\n", live, archive),
		fmt.Sprintf("liveRoot: %s\narchiveRoot: %s\n", live, live),
		fmt.Sprintf("liveRoot: %s\narchiveRoot: %s\narchiveExt: zip\n", live, archive),
		fmt.Sprintf("liveRoot: %s\narchiveRoot: %s\nsync: {driver: ftp}\n", live, archive),
		fmt.Sprintf("liveRoot: %s\narchiveRoot: %s\nsync: {bandwidthLimit: fast}\n", live, archive),
		fmt.Sprintf("liveRoot: %s\narchiveRoot: %s\ninventory: {timeout: soon}\n", live, archive),
		"liveRoot: [unterminated\n",
	} {
		path := filepath.Join(dir, tiers.ConfigFileYml)
		writeFile(t, path, c)
		_, err := tiers.LoadFile(mulog.Discard{}, path)
		require.Error(t, err, c)
		require.True(t, errors.Is(err, tiers.ErrConfig), c)
	}
}

func TestValidateRsyncOptions(t *testing.T) {
	_, live, archive := mkTiers(t)
	valid := func(opts ...string) *tiers.Config {
		cfg := &tiers.Config{LiveRoot: live, ArchiveRoot: archive}
		cfg.Sync.Driver = "rsync"
		cfg.Sync.RsyncOptions = opts
		cfg.SetDefaults()
		return cfg
	}

	require.NoError(t, valid(
		"--times", "--perms", "--partial-dir=.rsync-partial", "-v",
	).Validate())

	for _, o := range []string{
		"--remove-source-files",
		"--remove-sent-files",
		"--del",
		"--delete",
		"--delete-after",
		"--delete-excluded",
		"/etc/passwd",
	} {
		err := valid("--times", o).Validate()
		require.True(t, errors.Is(err, tiers.ErrConfig), o)
	}
}

func TestParseUint64Si(t *testing.T) {
	for _, c := range []struct {
		in  string
		out uint64
	}{
		{"0", 0},
		{"512", 512},
		{"1k", 1024},
		{"2M", 2 * 1024 * 1024},
		{"1g", 1 << 30},
		{"1t", 1 << 40},
	} {
		v, err := tiers.ParseUint64Si(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.out, v, c.in)
	}

	_, err := tiers.ParseUint64Si("-1k")
	require.Error(t, err)
	_, err = tiers.ParseUint64Si("x")
	require.Error(t, err)
}
