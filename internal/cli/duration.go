package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/dpetran/evtap/internal/domain"
)

// ParseWindow parses a trace duration in DD:HH:MM:SS form. The result is
// always positive: a zero window would stop the trace before it starts.
func ParseWindow(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return 0, domain.Configf("invalid duration %q: expected DD:HH:MM:SS", s)
	}

	fields := []struct {
		name string
		max  int
	}{
		{"days", -1},
		{"hours", 23},
		{"minutes", 59},
		{"seconds", 59},
	}

	var vals [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, domain.Configf("invalid duration %q: bad %s field %q", s, fields[i].name, part)
		}
		if fields[i].max >= 0 && n > fields[i].max {
			return 0, domain.Configf("invalid duration %q: %s out of range", s, fields[i].name)
		}
		vals[i] = n
	}

	d := time.Duration(vals[0])*24*time.Hour +
		time.Duration(vals[1])*time.Hour +
		time.Duration(vals[2])*time.Minute +
		time.Duration(vals[3])*time.Second
	if d == 0 {
		return 0, domain.Configf("duration %q is zero: omit --duration to trace until stopped", s)
	}
	return d, nil
}
