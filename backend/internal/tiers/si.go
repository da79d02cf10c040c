package tiers

import (
	"fmt"
	"strconv"
	"strings"
)

var siMap = map[string]uint64{
	"k": 1 << 10,
	"m": 1 << 20,
	"g": 1 << 30,
	"t": 1 << 40,
}

// `ParseUint64Si()` parses a size like `10m`.  Suffixes are interpreted as
// binary SI.
func ParseUint64Si(s string) (uint64, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	m := uint64(1)
	for suf, mult := range siMap {
		if strings.HasSuffix(s, suf) {
			m = mult
			s = s[0 : len(s)-len(suf)]
			break
		}
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		err := fmt.Errorf("must be positive, got %d", v)
		return 0, err
	}

	return uint64(v) * m, nil
}
