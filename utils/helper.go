package utils

import (
	"fmt"
	"os"
	"strings"
)

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	if ptr != nil {
		return *ptr
	}
	var zero T
	if len(defaults) > 0 {
		return defaults[0]
	}
	return zero
}

// EnvOrDefault reads an env var, trimming whitespace, with a fallback.
func EnvOrDefault(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func EnvBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

// SummarizeErrors bounds a per-item error list for API responses:
// the first few messages verbatim, then a "...and N more" tail.
func SummarizeErrors(errs []string, limit int) []string {
	if limit <= 0 || len(errs) <= limit {
		return errs
	}
	out := make([]string, 0, limit+1)
	out = append(out, errs[:limit]...)
	out = append(out, fmt.Sprintf("...and %d more", len(errs)-limit))
	return out
}

func SplitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
