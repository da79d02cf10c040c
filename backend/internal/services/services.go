// Package `services` contains the service record that the inventory returns
// and that the tier pipeline moves between tiers.
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/bu-isciii/tierarch/backend/pkg/regexpx"
)

var ErrInvalidType = errors.New("invalid service type")
var ErrInvalidRecord = errors.New("invalid service record")

// Record fields become path segments.  They must not contain a separator or
// start with a dot.
var (
	rgxSegment = regexpx.MustCompileVerbose(`
		^
		[A-Za-z0-9]
		[A-Za-z0-9_.-]*
		$
	`)
	rgxArea = regexpx.MustCompileVerbose(`
		^
		[\pL0-9]
		[\pL0-9_.\x20-]*
		$
	`)
)

// `Type` is the service type tag, which is also the first directory level
// below a tier root.
type Type string

const (
	TypeServicesAndCollaborations Type = "services_and_collaborations"
	TypeResearch                  Type = "research"
)

var Types = []Type{
	TypeServicesAndCollaborations,
	TypeResearch,
}

func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", ErrInvalidType
}

// `Record` identifies one service.  It is immutable after the inventory
// client created it.  `Area` may be empty.
type Record struct {
	RequestId string
	Center    string
	Area      string
	Type      Type
	Delivered time.Time
}

// `Ids()` returns the request ids in order.
func Ids(rs []Record) []string {
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.RequestId)
	}
	return ids
}

// `Validate()` checks that `r` can be safely resolved to tier paths.
func (r *Record) Validate() error {
	if !rgxSegment.MatchString(r.RequestId) {
		return fmt.Errorf(
			"%w: request id `%s`", ErrInvalidRecord, r.RequestId,
		)
	}
	if !rgxSegment.MatchString(r.Center) {
		return fmt.Errorf(
			"%w: service `%s` center `%s`",
			ErrInvalidRecord, r.RequestId, r.Center,
		)
	}
	if r.Area != "" && !rgxArea.MatchString(r.Area) {
		return fmt.Errorf(
			"%w: service `%s` area `%s`",
			ErrInvalidRecord, r.RequestId, r.Area,
		)
	}
	return nil
}
