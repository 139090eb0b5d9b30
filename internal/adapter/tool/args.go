package tool

import (
	"errors"
	"slices"
	"strings"
)

// argProblems gathers every problem with a call's arguments so the model can
// fix them all in one retry.
type argProblems []string

func (a *argProblems) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		*a = append(*a, field+" is required")
	}
}

// oneOf accepts an empty value as "use the default".
func (a *argProblems) oneOf(field, value string, allowed []string) {
	if value != "" && !slices.Contains(allowed, value) {
		*a = append(*a, field+" must be one of "+strings.Join(allowed, ", ")+", got "+value)
	}
}

func (a argProblems) err() error {
	if len(a) == 0 {
		return nil
	}
	return errors.New("invalid arguments: " + strings.Join(a, "; "))
}

// orDefault returns def when value is blank.
func orDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
