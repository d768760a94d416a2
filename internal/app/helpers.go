package app

import (
	"fmt"
	"strconv"
	"strings"

	"lending-library/library"
)

// parseID parses a positive record id given on the command line.
func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID %q: %w", what, s, library.ErrInvalid)
	}
	return id, nil
}

func usageErr(msg string) error {
	return fmt.Errorf("%s: %w", msg, library.ErrInvalid)
}

// splitArgs splits a shell line into words. Single and double quotes group
// words; a backslash escapes the next character outside single quotes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, usageErr("unterminated quote")
	}
	if escaped {
		return nil, usageErr("trailing backslash")
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
