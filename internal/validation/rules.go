// Package validation provides the pure field validation rules applied to
// form submissions before any store call is made.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

// Result reports a single rule evaluation. Error is empty when valid.
type Result struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error"`
}

// Rule evaluates a value and reports the outcome. Rules are pure and safe to
// run synchronously at submit time or on field blur.
type Rule func(value any) Result

var valid = Result{IsValid: true}

func invalid(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Field runs rules in order and returns the first failure, or success when
// all rules pass.
func Field(value any, rules ...Rule) Result {
	for _, rule := range rules {
		if res := rule(value); !res.IsValid {
			return res
		}
	}
	return valid
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	return false
}

// Required fails for nil and empty-string values.
func Required(fieldName string) Rule {
	return func(value any) Result {
		if isEmpty(value) {
			return invalid("%s is required", fieldName)
		}
		return valid
	}
}

// RequiredWhen enforces Required only while condition holds; otherwise any
// value passes. Used for conditionally mandatory fields such as plan details
// that only apply when the plan itself is flagged as required.
func RequiredWhen(condition bool, fieldName string) Rule {
	return func(value any) Result {
		if !condition {
			return valid
		}
		return Required(fieldName)(value)
	}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email checks the value against a permissive address pattern. Empty values
// pass; combine with Required when the field is mandatory.
func Email() Rule {
	return func(value any) Result {
		if isEmpty(value) {
			return valid
		}
		s, ok := value.(string)
		if !ok || !emailPattern.MatchString(s) {
			return invalid("must be a valid email address")
		}
		return valid
	}
}

var phonePattern = regexp.MustCompile(`^[0-9+()\-\s]{6,20}$`)

// Phone applies a permissive character-class check. Empty values pass.
func Phone() Rule {
	return func(value any) Result {
		if isEmpty(value) {
			return valid
		}
		s, ok := value.(string)
		if !ok || !phonePattern.MatchString(s) {
			return invalid("must be a valid phone number")
		}
		return valid
	}
}

// URL requires the value to parse as an absolute URL. Empty values pass.
func URL() Rule {
	return func(value any) Result {
		if isEmpty(value) {
			return valid
		}
		s, ok := value.(string)
		if !ok {
			return invalid("must be a valid URL")
		}
		parsed, err := url.Parse(s)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return invalid("must be a valid URL")
		}
		return valid
	}
}

// MinLength requires at least n characters. Empty values pass.
func MinLength(n int) Rule {
	return func(value any) Result {
		if isEmpty(value) {
			return valid
		}
		s, _ := value.(string)
		if len([]rune(s)) < n {
			return invalid("must be at least %d characters", n)
		}
		return valid
	}
}

// MaxLength allows at most n characters.
func MaxLength(n int) Rule {
	return func(value any) Result {
		s, _ := value.(string)
		if len([]rune(s)) > n {
			return invalid("must be at most %d characters", n)
		}
		return valid
	}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Numeric requires the value to be a number or a string that parses as one.
// Empty values pass.
func Numeric() Rule {
	return func(value any) Result {
		if isEmpty(value) {
			return valid
		}
		if _, ok := asNumber(value); !ok {
			return invalid("must be a number")
		}
		return valid
	}
}

// Min enforces a lower numeric bound. Nil and empty values pass.
func Min(limit float64) Rule {
	return func(value any) Result {
		if isEmpty(value) {
			return valid
		}
		n, ok := asNumber(value)
		if !ok {
			return invalid("must be a number")
		}
		if n < limit {
			return invalid("must be at least %v", limit)
		}
		return valid
	}
}

// Max enforces an upper numeric bound. Nil and empty values pass.
func Max(limit float64) Rule {
	return func(value any) Result {
		if isEmpty(value) {
			return valid
		}
		n, ok := asNumber(value)
		if !ok {
			return invalid("must be a number")
		}
		if n > limit {
			return invalid("must be at most %v", limit)
		}
		return valid
	}
}

// Matches requires equality with another value, e.g. password confirmation.
func Matches(other any, fieldName string) Rule {
	return func(value any) Result {
		if value != other {
			return invalid("must match %s", fieldName)
		}
		return valid
	}
}

var timeNow = func() time.Time { return time.Now().UTC() }

func asTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
		t, err := time.Parse("2006-01-02", v)
		return t, err == nil
	default:
		return time.Time{}, false
	}
}

// PastDate requires a date strictly before now. Empty values pass.
func PastDate() Rule {
	return func(value any) Result {
		if isEmpty(value) {
			return valid
		}
		t, ok := asTime(value)
		if !ok {
			return invalid("must be a valid date")
		}
		if !t.Before(timeNow()) {
			return invalid("must be in the past")
		}
		return valid
	}
}

// FutureDate requires a date strictly after now. Empty values pass.
func FutureDate() Rule {
	return func(value any) Result {
		if isEmpty(value) {
			return valid
		}
		t, ok := asTime(value)
		if !ok {
			return invalid("must be a valid date")
		}
		if !t.After(timeNow()) {
			return invalid("must be in the future")
		}
		return valid
	}
}
