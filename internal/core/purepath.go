package core

import (
	"cmp"
	"net/url"
	"path"
	"slices"
	"strings"
)

// Flavour selects separator and root conventions for a PurePath.
type Flavour int

const (
	Posix Flavour = iota
	Windows
)

func (f Flavour) String() string {
	if f == Windows {
		return "windows"
	}
	return "posix"
}

func (f Flavour) sep() string {
	if f == Windows {
		return `\`
	}
	return "/"
}

func (f Flavour) fold(s string) string {
	if f == Windows {
		return strings.ToLower(s)
	}
	return s
}

func (f Flavour) normalize(s string) string {
	if f == Windows {
		return strings.ReplaceAll(s, "/", `\`)
	}
	return s
}

// splitRoot splits a normalized path string into drive, root and the rest.
func (f Flavour) splitRoot(s string) (drive, root, rest string) {
	if f == Posix {
		switch {
		case strings.HasPrefix(s, "//") && !strings.HasPrefix(s, "///"):
			return "", "//", s[2:]
		case strings.HasPrefix(s, "/"):
			return "", "/", strings.TrimLeft(s, "/")
		}
		return "", "", s
	}

	if strings.HasPrefix(s, `\\`) {
		// UNC: \\server\share
		server, after, ok := strings.Cut(s[2:], `\`)
		if !ok || server == "" {
			return s, "", ""
		}
		share, tail, _ := strings.Cut(after, `\`)
		if share == "" {
			return s, "", ""
		}
		return `\\` + server + `\` + share, `\`, strings.TrimLeft(tail, `\`)
	}
	if len(s) >= 2 && s[1] == ':' && isASCIILetter(s[0]) {
		drive, s = s[:2], s[2:]
	}
	if strings.HasPrefix(s, `\`) {
		return drive, `\`, strings.TrimLeft(s, `\`)
	}
	return drive, "", s
}

func (f Flavour) split(rest string) []string {
	var out []string
	for _, part := range strings.Split(rest, f.sep()) {
		if part == "" || part == "." {
			continue
		}
		out = append(out, part)
	}
	return out
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

var windowsReserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// PurePath is a syntactic path value. It never touches a filesystem.
type PurePath struct {
	flavour Flavour
	drive   string
	root    string
	tail    []string
}

// NewPurePath parses and joins parts under flavour. An absolute part
// discards everything before it.
func NewPurePath(flavour Flavour, parts ...string) PurePath {
	p := PurePath{flavour: flavour}
	return p.join(parts)
}

func (p PurePath) join(parts []string) PurePath {
	f := p.flavour
	out := PurePath{flavour: f, drive: p.drive, root: p.root, tail: slices.Clone(p.tail)}
	for _, raw := range parts {
		if raw == "" {
			continue
		}
		drive, root, rest := f.splitRoot(f.normalize(raw))
		if root != "" {
			if drive != "" || out.drive == "" {
				out.drive = drive
			}
			out.root = root
			out.tail = f.split(rest)
			continue
		}
		if drive != "" && drive != out.drive {
			if f.fold(drive) != f.fold(out.drive) {
				out.drive, out.root, out.tail = drive, "", f.split(rest)
				continue
			}
			out.drive = drive
		}
		out.tail = append(out.tail, f.split(rest)...)
	}
	return out
}

func (p PurePath) Flavour() Flavour { return p.flavour }

func (p PurePath) String() string {
	s := p.Anchor() + strings.Join(p.tail, p.flavour.sep())
	if s == "" {
		return "."
	}
	return s
}

func (p PurePath) Drive() string { return p.drive }

func (p PurePath) Root() string { return p.root }

// Anchor is drive and root concatenated.
func (p PurePath) Anchor() string { return p.drive + p.root }

// Parts returns the anchor, if any, followed by each component.
func (p PurePath) Parts() []string {
	out := make([]string, 0, len(p.tail)+1)
	if anchor := p.Anchor(); anchor != "" {
		out = append(out, anchor)
	}
	return append(out, p.tail...)
}

// Name is the final component, empty for anchors and ".".
func (p PurePath) Name() string {
	if len(p.tail) == 0 {
		return ""
	}
	return p.tail[len(p.tail)-1]
}

func (p PurePath) Suffix() string {
	name := p.Name()
	i := strings.LastIndexByte(name, '.')
	if 0 < i && i < len(name)-1 {
		return name[i:]
	}
	return ""
}

func (p PurePath) Suffixes() []string {
	name := p.Name()
	if strings.HasSuffix(name, ".") {
		return nil
	}
	exts := strings.Split(strings.TrimLeft(name, "."), ".")[1:]
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		out = append(out, "."+ext)
	}
	return out
}

func (p PurePath) Stem() string {
	name := p.Name()
	i := strings.LastIndexByte(name, '.')
	if 0 < i && i < len(name)-1 {
		return name[:i]
	}
	return name
}

// Parent is the logical parent. The parent of an anchor or "." is itself.
func (p PurePath) Parent() PurePath {
	if len(p.tail) == 0 {
		return p
	}
	return PurePath{flavour: p.flavour, drive: p.drive, root: p.root, tail: slices.Clone(p.tail[:len(p.tail)-1])}
}

// Parents lists the logical ancestors, nearest first.
func (p PurePath) Parents() []PurePath {
	var out []PurePath
	for cur := p; len(cur.tail) > 0; {
		cur = cur.Parent()
		out = append(out, cur)
	}
	return out
}

func (p PurePath) IsAbsolute() bool {
	if p.flavour == Windows {
		return p.drive != "" && p.root != ""
	}
	return p.root != ""
}

// IsReserved reports whether the path is reserved under Windows. POSIX paths
// are never reserved.
func (p PurePath) IsReserved() bool {
	if p.flavour != Windows || len(p.tail) == 0 || strings.HasPrefix(p.drive, `\\`) {
		return false
	}
	name, _, _ := strings.Cut(p.Name(), ".")
	name, _, _ = strings.Cut(name, ":")
	return windowsReserved[strings.ToUpper(strings.TrimRight(name, " "))]
}

// AsPosix returns the string form with forward slashes.
func (p PurePath) AsPosix() string {
	return strings.ReplaceAll(p.String(), `\`, "/")
}

// AsURI returns a file URI. Relative paths cannot be expressed as URIs.
func (p PurePath) AsURI() (string, error) {
	if !p.IsAbsolute() {
		return "", mismatch("relative path %q can't be expressed as a file URI", p.String())
	}
	u := url.URL{Scheme: "file"}
	switch {
	case p.flavour == Windows && strings.HasPrefix(p.drive, `\\`):
		server, share, _ := strings.Cut(p.drive[2:], `\`)
		u.Host = server
		u.Path = "/" + share + "/" + strings.Join(p.tail, "/")
	case p.flavour == Windows:
		u.Path = "/" + p.drive + "/" + strings.Join(p.tail, "/")
	default:
		u.Path = p.AsPosix()
		// "//" roots would otherwise read as a host.
		if strings.HasPrefix(u.Path, "//") {
			u.Path = "/" + strings.TrimLeft(u.Path, "/")
		}
	}
	return u.String(), nil
}

// Join appends parts. An absolute part replaces the path.
func (p PurePath) Join(parts ...string) PurePath {
	return p.join(parts)
}

// RelativeTo returns p relative to other, failing with ErrValueMismatch when
// other is not a prefix of p.
func (p PurePath) RelativeTo(other PurePath) (PurePath, error) {
	f := p.flavour
	if other.flavour != f {
		other = NewPurePath(f, other.String())
	}
	fail := func() (PurePath, error) {
		return PurePath{}, mismatch("%q is not in the subpath of %q", p.String(), other.String())
	}
	if f.fold(p.drive) != f.fold(other.drive) || p.root != other.root || len(other.tail) > len(p.tail) {
		return fail()
	}
	for i, part := range other.tail {
		if f.fold(part) != f.fold(p.tail[i]) {
			return fail()
		}
	}
	return PurePath{flavour: f, tail: slices.Clone(p.tail[len(other.tail):])}, nil
}

// WithName returns a copy with the final component replaced.
func (p PurePath) WithName(name string) (PurePath, error) {
	if p.Name() == "" {
		return PurePath{}, mismatch("%q has an empty name", p.String())
	}
	if !p.validName(name) {
		return PurePath{}, mismatch("invalid name %q", name)
	}
	out := p.Parent()
	out.tail = append(out.tail, name)
	return out, nil
}

func (p PurePath) validName(name string) bool {
	f := p.flavour
	if name == "" || name == "." || strings.Contains(name, "/") || strings.Contains(name, f.sep()) {
		return false
	}
	drive, root, _ := f.splitRoot(f.normalize(name))
	return drive == "" && root == ""
}

// WithSuffix returns a copy with the suffix replaced, added, or removed when
// suffix is empty.
func (p PurePath) WithSuffix(suffix string) (PurePath, error) {
	f := p.flavour
	if strings.Contains(suffix, "/") || strings.Contains(suffix, f.sep()) ||
		(suffix != "" && !strings.HasPrefix(suffix, ".")) || suffix == "." {
		return PurePath{}, mismatch("invalid suffix %q", suffix)
	}
	name := p.Name()
	if name == "" {
		return PurePath{}, mismatch("%q has an empty name", p.String())
	}
	name = strings.TrimSuffix(name, p.Suffix()) + suffix
	out := p.Parent()
	out.tail = append(out.tail, name)
	return out, nil
}

// Match reports whether p matches a glob-style pattern. Relative patterns
// match from the right; absolute patterns must match the whole path.
func (p PurePath) Match(pattern string) (bool, error) {
	if pattern == "" {
		return false, mismatch("empty pattern")
	}
	f := p.flavour
	pat := NewPurePath(f, pattern)
	if pat.drive != "" && f.fold(pat.drive) != f.fold(p.drive) {
		return false, nil
	}
	if pat.root != "" && pat.root != p.root {
		return false, nil
	}
	if pat.Anchor() != "" {
		if len(pat.tail) != len(p.tail) {
			return false, nil
		}
	} else if len(pat.tail) > len(p.tail) {
		return false, nil
	}
	offset := len(p.tail) - len(pat.tail)
	for i, seg := range pat.tail {
		ok, err := path.Match(f.fold(seg), f.fold(p.tail[offset+i]))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Equal compares flavour and the case-folded components.
func (p PurePath) Equal(other PurePath) bool {
	return p.Compare(other) == 0
}

// Compare orders paths by flavour, then component-wise.
func (p PurePath) Compare(other PurePath) int {
	if c := cmp.Compare(p.flavour, other.flavour); c != 0 {
		return c
	}
	return slices.Compare(p.key(), other.key())
}

func (p PurePath) key() []string {
	parts := p.Parts()
	for i, part := range parts {
		parts[i] = p.flavour.fold(part)
	}
	return parts
}
