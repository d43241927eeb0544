package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxNameLength bounds item and region names.
const MaxNameLength = 64

// identRegex matches the C identifiers the partition manager accepts as
// partition and region names.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateItemName validates a partition or group name. The empty name is
// accepted: unnamed items are placed but never exported.
func ValidateItemName(name string) error {
	if name == "" {
		return nil
	}
	return validateIdent(ErrCodeInvalidName, "item", name)
}

// ValidateRegionName validates a memory region name.
func ValidateRegionName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidRegion, "region name cannot be empty")
	}
	return validateIdent(ErrCodeInvalidRegion, "region", name)
}

// ValidateSpan validates the names listed in a span.
func ValidateSpan(names []string) error {
	for _, n := range names {
		if n == "" {
			return New(ErrCodeInvalidName, "span entries cannot be empty")
		}
		if err := validateIdent(ErrCodeInvalidName, "span entry", n); err != nil {
			return err
		}
	}
	return nil
}

func validateIdent(code Code, what, name string) error {
	if len(name) > MaxNameLength {
		return New(code, "%s name too long (max %d characters)", what, MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(code, "%s name contains invalid control characters", what)
		}
	}
	if !identRegex.MatchString(name) {
		return New(code, "invalid %s name %q: use letters, digits and underscores", what, name)
	}
	return nil
}

// ValidateSizeText checks that text looks like a size value: a decimal
// number with an optional K or M suffix, or a 0x-prefixed hex number.
//
// The size parser itself never fails and coerces garbage to zero; this
// check lets interactive surfaces reject input before that happens.
func ValidateSizeText(text string) error {
	t := strings.TrimSpace(text)
	if t == "" {
		return New(ErrCodeInvalidSize, "size cannot be empty")
	}
	if !sizeRegex.MatchString(t) {
		return New(ErrCodeInvalidSize, "invalid size %q: use e.g. 48K, 1.5M, 4096 or 0x200", text)
	}
	return nil
}

var sizeRegex = regexp.MustCompile(`^(0[xX][0-9A-Fa-f]+|[0-9]+(\.[0-9]+)?\s*[KkMm]?[Bb]?)$`)
