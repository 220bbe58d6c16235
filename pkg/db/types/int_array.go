package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// IntArray mirrors a Postgres int[] column. Weekdays use 0 (Sunday) through 6.
type IntArray []int

func (a *IntArray) Scan(src any) error {
	if src == nil {
		*a = IntArray{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return a.parseFromString(v)
	case []byte:
		return a.parseFromString(string(v))
	default:
		return fmt.Errorf("IntArray: unsupported Scan type %T", src)
	}
}

func (a IntArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	parts := make([]string, 0, len(a))
	for _, n := range a {
		parts = append(parts, strconv.Itoa(n))
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// Contains reports whether the array holds the given value.
func (a IntArray) Contains(n int) bool {
	for _, candidate := range a {
		if candidate == n {
			return true
		}
	}
	return false
}

func (a *IntArray) parseFromString(s string) error {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if strings.TrimSpace(s) == "" {
		*a = IntArray{}
		return nil
	}

	raw := strings.Split(s, ",")
	out := make([]int, 0, len(raw))
	for _, r := range raw {
		n, err := strconv.Atoi(strings.TrimSpace(r))
		if err != nil {
			return fmt.Errorf("IntArray: parse %q: %w", r, err)
		}
		out = append(out, n)
	}
	*a = IntArray(out)
	return nil
}
