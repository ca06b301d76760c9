package moderation

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var durationToken = regexp.MustCompile(`(?i)\b(\d+)([smhd])\b`)

// ParseDurationToken extracts the first duration token like "10m" or "2h"
// from text. ok is false when no token is present.
func ParseDurationToken(text string) (d time.Duration, ok bool) {
	m := durationToken.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	switch m[2][0] | 0x20 {
	case 's':
		d = time.Duration(n) * time.Second
	case 'm':
		d = time.Duration(n) * time.Minute
	case 'h':
		d = time.Duration(n) * time.Hour
	case 'd':
		d = time.Duration(n) * 24 * time.Hour
	}
	return d, true
}

// HumanDuration renders d compactly: 90s -> "1m30s", 25h -> "1d1h".
func HumanDuration(d time.Duration) string {
	s := int(d.Seconds())
	if s < 60 {
		return fmt.Sprintf("%ds", s)
	}
	m, rs := s/60, s%60
	if m < 60 {
		if rs == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, rs)
	}
	h, rm := m/60, m%60
	if h < 24 {
		if rm == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh%dm", h, rm)
	}
	days, rh := h/24, h%24
	if rh == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, rh)
}
