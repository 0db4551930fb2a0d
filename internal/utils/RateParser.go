package utils

import (
	"fmt"
	"strconv"
)

// ParseWindow converts a window such as "30s", "5m" or "1h" into seconds
func ParseWindow(s string) (int, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("unexpected window format: %q", s)
	}
	unit := s[len(s)-1]
	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("unexpected window format: %q", s)
	}
	switch unit {
	case 's':
		return value, nil
	case 'm':
		return value * 60, nil
	case 'h':
		return value * 3600, nil
	default:
		return 0, fmt.Errorf("unexpected time unit: %s", string(unit))
	}
}
