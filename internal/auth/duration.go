package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTTL reads a token lifetime. Accepted forms:
// Go durations ("15m", "1h30m"), whole days ("7d") and bare seconds ("3600").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty token ttl")
	}

	var (
		d   time.Duration
		err error
	)

	switch {
	case strings.HasSuffix(s, "d"):
		var days int
		days, err = strconv.Atoi(strings.TrimSuffix(s, "d"))
		d = time.Duration(days) * 24 * time.Hour
	case isDigits(s):
		var secs int
		secs, err = strconv.Atoi(s)
		d = time.Duration(secs) * time.Second
	default:
		d, err = time.ParseDuration(s)
	}

	if err != nil {
		return 0, fmt.Errorf("parse token ttl %q: %w", s, err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("token ttl %q must be positive", s)
	}

	return d, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
