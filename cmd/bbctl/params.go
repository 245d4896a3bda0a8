package main

import (
	"strconv"
	"strings"
)

// parseParams converts a comma-separated list of CLI parameter literals
// into the []interface{} Filter/Project/Join params expect, inferring
// int64, float64, and bool before falling back to string. An empty raw
// string yields no params rather than one empty-string param.
func parseParams(raw string) []interface{} {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]interface{}, len(parts))
	for i, part := range parts {
		out[i] = parseParam(strings.TrimSpace(part))
	}
	return out
}

func parseParam(s string) interface{} {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
