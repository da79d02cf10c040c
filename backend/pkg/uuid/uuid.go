// Package `uuid` uses `google/uuid` for unique temporary names.  See GoDoc
// <https://godoc.org/github.com/google/uuid>.
package uuid

import (
	"github.com/google/uuid"
)

// `InProgressName()` returns a unique sibling name for `path` that marks
// incomplete data, `<path>.inprogress-<uuid>`.
func InProgressName(path string) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return path + ".inprogress-" + id.String(), nil
}
