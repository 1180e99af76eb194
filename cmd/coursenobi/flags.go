package main

import (
	"fmt"
	"strings"

	"github.com/kingrea/coursenobi/internal/course"
)

// keyValueFlag collects repeatable KEY=VALUE arguments in order.
type keyValueFlag []string

func (kv *keyValueFlag) String() string {
	if kv == nil {
		return ""
	}
	return strings.Join(*kv, ", ")
}

func (kv *keyValueFlag) Set(value string) error {
	key, _, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("expected KEY=VALUE, got %q", value)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is empty in %q", value)
	}
	*kv = append(*kv, value)
	return nil
}

// splitCourses turns "ICS 31, MATH 2A" into identifiers. Remapping happens
// later, during request normalization.
func splitCourses(value string) []course.ID {
	var out []course.ID
	for _, part := range strings.Split(value, ",") {
		if part = course.Normalize(part); part != "" {
			out = append(out, course.ID(part))
		}
	}
	return out
}
