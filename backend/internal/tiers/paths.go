// Package `tiers` contains the tier configuration and the path resolver that
// maps a service to its locations in the live and archive tiers.
//
// Paths are a pure function of the config and the service record.  Pipeline
// stages recompute them instead of passing them along.
package tiers

import (
	"path/filepath"
	"strings"

	"github.com/bu-isciii/tierarch/backend/internal/services"
)

// `Direction` tells which tier is the source.
type Direction int

const (
	DirectionUnspecified Direction = iota
	// `Archive` moves from live to archive.
	Archive
	// `Retrieve` moves from archive to live.
	Retrieve
)

func (d Direction) String() string {
	switch d {
	case Archive:
		return "archive"
	case Retrieve:
		return "retrieve"
	default:
		return "unspecified"
	}
}

func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "archive":
		return Archive, true
	case "retrieve":
		return Retrieve, true
	default:
		return DirectionUnspecified, false
	}
}

// `Paths` is the pair of service directories in both tiers.
type Paths struct {
	Archived string
	Live     string
}

// `Resolve()` computes `<root>/<type>/<center>/<lower(area)>/<requestId>` for
// both tiers.  If `typ` is empty, the record type is used.  An empty area
// results in an empty path segment.
func Resolve(cfg *Config, typ services.Type, rec services.Record) Paths {
	if typ == "" {
		typ = rec.Type
	}
	rel := []string{
		string(typ),
		rec.Center,
		strings.ToLower(rec.Area),
		rec.RequestId,
	}
	return Paths{
		Archived: filepath.Join(append([]string{cfg.ArchiveRoot}, rel...)...),
		Live:     filepath.Join(append([]string{cfg.LiveRoot}, rel...)...),
	}
}

// `Layout` contains the four locations that the pipeline inspects for one
// service in one direction.
type Layout struct {
	SourceDir     string
	SourceArchive string
	DestDir       string
	DestArchive   string
}

// `Layout()` orients the paths for direction `d`; `ext` is the archive file
// extension without leading dot.
func (p Paths) Layout(d Direction, ext string) Layout {
	src, dst := p.Live, p.Archived
	if d == Retrieve {
		src, dst = p.Archived, p.Live
	}
	return Layout{
		SourceDir:     src,
		SourceArchive: ArchiveFile(src, ext),
		DestDir:       dst,
		DestArchive:   ArchiveFile(dst, ext),
	}
}

// `ArchiveFile()` returns `<dir>.<ext>`.
func ArchiveFile(dir, ext string) string {
	return filepath.Clean(dir) + "." + ext
}
