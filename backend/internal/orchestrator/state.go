package orchestrator

import (
	"os"

	"github.com/bu-isciii/tierarch/backend/internal/tiers"
)

// `State` is the presence of the four artifacts of a service, relative to
// the direction of the run.  It is re-derived from the filesystem before
// every stage; there is no separate progress record.
type State struct {
	SourceDir     bool
	SourceArchive bool
	DestArchive   bool
	DestDir       bool
}

func DeriveState(l tiers.Layout) State {
	return State{
		SourceDir:     isDir(l.SourceDir),
		SourceArchive: isFile(l.SourceArchive),
		DestArchive:   isFile(l.DestArchive),
		DestDir:       isDir(l.DestDir),
	}
}

// `Phase()` names the furthest pipeline step that the state indicates:
// `pending -> compressed -> transferred -> expanded -> source-deleted`.
func (s State) Phase() string {
	switch {
	case s.DestDir && !s.SourceDir && !s.SourceArchive && !s.DestArchive:
		return "source-deleted"
	case s.DestDir:
		return "expanded"
	case s.DestArchive:
		return "transferred"
	case s.SourceArchive:
		return "compressed"
	case s.SourceDir:
		return "pending"
	default:
		return "absent"
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode().IsRegular()
}
