// Package size parses and formats the byte quantities used in partition
// tables.
//
// Sizes are written by humans in a handful of shapes: plain decimal bytes
// ("512"), binary-suffixed decimals ("48K", "1.5M") and hexadecimal
// ("0x200"). [Parse] accepts all of them and never fails: text that cannot
// be read as a size yields 0.
//
// Two renderings exist. [FormatBytes] is lossy and meant for display.
// [FormatForInput] is the canonical editable form, and
// Parse(FormatForInput(n)) == n holds for every n.
package size

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// KiB is one binary kilobyte.
	KiB uint64 = 1024
	// MiB is one binary megabyte.
	MiB = KiB * KiB
)

// Parse converts size text to bytes.
//
// A "0x" or "0X" prefix selects hexadecimal; the longest run of hex digits
// after the prefix is used. Otherwise the leading decimal number is read and
// scaled by 1024² when the rest of the text contains an M, or by 1024 when
// it contains a K (case-insensitive), then rounded to the nearest integer.
// Empty, unparseable and negative input yields 0.
func Parse(text string) uint64 {
	s := strings.ToUpper(strings.TrimSpace(text))
	if s == "" {
		return 0
	}

	if strings.HasPrefix(s, "0X") {
		digits := leadingHex(s[2:])
		if digits == "" {
			return 0
		}
		v, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			return 0
		}
		return v
	}

	num, rest := leadingFloat(s)
	if num == "" {
		return 0
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(v) || v <= 0 {
		return 0
	}

	switch {
	case strings.Contains(rest, "M"):
		v *= float64(MiB)
	case strings.Contains(rest, "K"):
		v *= float64(KiB)
	}
	if v >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(math.Round(v))
}

func leadingHex(s string) string {
	end := 0
	for end < len(s) && isHexDigit(s[end]) {
		end++
	}
	return s[:end]
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}

// leadingFloat splits s into its leading decimal literal and the remainder.
// It accepts an optional sign, digits with an optional fraction, and an
// optional exponent.
func leadingFloat(s string) (num, rest string) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return "", s
	}
	// Exponent only counts when digits follow it.
	if i < len(s) && s[i] == 'E' {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			i = k
		}
	}
	return s[:i], s[i:]
}

// FormatBytes renders n for display with one decimal and a binary unit,
// e.g. "0 B", "512 B", "1.5 KB", "480 KB", "1 MB".
func FormatBytes(n uint64) string {
	if n == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	i, div := 0, uint64(1)
	for i < len(units)-1 && n/div >= KiB {
		div *= KiB
		i++
	}
	v := float64(n) / float64(div)
	v = math.Round(v*10) / 10
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + units[i]
}

// FormatForInput renders n in the canonical editable form: "<n>M" for exact
// multiples of 1024², "<n>K" for exact multiples of 1024, the decimal
// integer otherwise.
func FormatForInput(n uint64) string {
	switch {
	case n == 0:
		return "0"
	case n%MiB == 0:
		return strconv.FormatUint(n/MiB, 10) + "M"
	case n%KiB == 0:
		return strconv.FormatUint(n/KiB, 10) + "K"
	default:
		return strconv.FormatUint(n, 10)
	}
}

// FormatHex renders n as uppercase hexadecimal with a 0x prefix, zero padded
// to width digits. A width of 0 disables padding.
func FormatHex(n uint64, width int) string {
	return fmt.Sprintf("0x%0*X", width, n)
}

// AlignUp rounds n up to the next multiple of page. A page of 0 returns n,
// as does an n whose rounded value would not fit in a uint64.
func AlignUp(n, page uint64) uint64 {
	if page == 0 {
		return n
	}
	r := n % page
	if r == 0 || n > math.MaxUint64-(page-r) {
		return n
	}
	return n + page - r
}

// Add returns a+b, saturating at math.MaxUint64.
func Add(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
