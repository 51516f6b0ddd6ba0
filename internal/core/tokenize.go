package core

import (
	"errors"
	"strings"
)

var errUnterminated = errors.New("unterminated quote")

// SplitArgs splits a command line into arguments the way a POSIX shell would
// without expansion:
//   - unquoted spaces, tabs and newlines separate arguments;
//   - single quotes keep their contents literally;
//   - inside double quotes a backslash escapes only $, `, ", \ and newline;
//   - outside quotes a backslash escapes the next character, and
//     backslash-newline is a line continuation.
//
// Quoted sections may be glued to unquoted text ("a'b c'" is one argument).
func SplitArgs(line string) ([]string, error) {
	var (
		out      []string
		buf      strings.Builder
		inToken  bool
		inSingle bool
		inDouble bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inSingle:
			if r == '\'' {
				inSingle = false
				continue
			}
			buf.WriteRune(r)
		case inDouble:
			switch r {
			case '"':
				inDouble = false
			case '\\':
				if i+1 < len(runes) && strings.ContainsRune("$`\"\\\n", runes[i+1]) {
					i++
					if runes[i] != '\n' {
						buf.WriteRune(runes[i])
					}
					continue
				}
				buf.WriteRune(r)
			default:
				buf.WriteRune(r)
			}
		case r == '\\':
			if i+1 >= len(runes) {
				buf.WriteRune(r)
				inToken = true
				continue
			}
			i++
			if runes[i] == '\n' {
				continue
			}
			buf.WriteRune(runes[i])
			inToken = true
		case r == '\'':
			inSingle, inToken = true, true
		case r == '"':
			inDouble, inToken = true, true
		case r == ' ' || r == '\t' || r == '\n':
			if inToken {
				out = append(out, buf.String())
				buf.Reset()
				inToken = false
			}
		default:
			buf.WriteRune(r)
			inToken = true
		}
	}
	if inSingle || inDouble {
		return nil, errUnterminated
	}
	if inToken {
		out = append(out, buf.String())
	}
	return out, nil
}

// Quote returns arg quoted for a POSIX shell. Arguments made only of safe
// characters are returned unchanged.
func Quote(arg string) string {
	if arg == "" {
		return "''"
	}
	safe := true
	for _, r := range arg {
		if !isShellSafe(r) {
			safe = false
			break
		}
	}
	if safe {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

func isShellSafe(r rune) bool {
	switch {
	case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		return true
	}
	return strings.ContainsRune("@%+=:,./-_", r)
}

// JoinQuoted quotes each argument and joins them with spaces.
func JoinQuoted(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}
