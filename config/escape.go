package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EscapeNone disables the escape character.
const EscapeNone = -1

// ParseEscape turns a user-supplied escape character into a byte value,
// or EscapeNone.  Accepted forms:
//
//	^]  ^A  ^?     caret notation
//	0x1d           hex
//	29             decimal (two digits or more)
//	~              any single character, taken literally
//	none, off      disabled
func ParseEscape(spec string) (int, error) {
	switch strings.ToLower(spec) {
	case "none", "off", "disable", "disabled":
		return EscapeNone, nil
	case "":
		return 0, fmt.Errorf("empty escape character")
	}

	if len(spec) == 1 {
		return int(spec[0]), nil
	}

	if len(spec) == 2 && spec[0] == '^' {
		c := spec[1]
		if c == '?' {
			return 0x7f, nil
		}
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < '@' || c > '_' {
			return 0, fmt.Errorf("invalid control character %q", spec)
		}
		return int(c & 0x1f), nil
	}

	v, err := strconv.ParseUint(spec, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid escape character %q: want ^X, 0xNN, a number up to 255, a single character or none", spec)
	}
	return int(v), nil
}

// FormatEscape renders an escape value the way ParseEscape reads it.
func FormatEscape(c int) string {
	switch {
	case c < 0:
		return "none"
	case c < 0x20:
		return "^" + string(rune(c+'@'))
	case c == 0x7f:
		return "^?"
	case c < 0x7f:
		return string(rune(c))
	}
	return fmt.Sprintf("0x%02x", c)
}
