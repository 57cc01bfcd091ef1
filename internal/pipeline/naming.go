package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// OutputName derives a file stem that cannot escape the output directory.
// An empty name falls back to the input file's base name.
func OutputName(name, inputPath string) string {
	if clean := sanitize(name); clean != "" {
		return clean
	}
	base := filepath.Base(inputPath)
	if clean := sanitize(strings.TrimSuffix(base, filepath.Ext(base))); clean != "" {
		return clean
	}
	return "character"
}

func sanitize(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '_' || r == '.':
			return r
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))

	return strings.Trim(mapped, "._")
}

// Namer hands out output names that are unique within one run, so two
// inputs never write the same sprite. Names compare case-insensitively
// since output directories may live on case-insensitive filesystems. A path
// keeps its name for the life of the Namer. Not safe for concurrent use.
type Namer struct {
	byPath map[string]string
	taken  map[string]string
}

func NewNamer() *Namer {
	return &Namer{byPath: make(map[string]string), taken: make(map[string]string)}
}

// Name returns the output name for path. Clashing stems are qualified with
// the input extension first (hero_png), then with a counter (hero_png_2).
func (n *Namer) Name(path string) string {
	return n.claim(path, OutputName("", path))
}

// Assign names a whole set of paths at once. Every path whose stem clashes
// with another one in the set is qualified with its extension, not only
// the later ones, so the result does not depend on processing order.
func (n *Namer) Assign(paths []string) []string {
	counts := make(map[string]int, len(paths))
	for _, p := range paths {
		counts[nameKey(OutputName("", p))]++
	}

	names := make([]string, len(paths))
	for i, p := range paths {
		preferred := OutputName("", p)
		if counts[nameKey(preferred)] > 1 {
			preferred = qualified(preferred, p)
		}
		names[i] = n.claim(p, preferred)
	}
	return names
}

func (n *Namer) claim(path, preferred string) string {
	if name, ok := n.byPath[path]; ok {
		return name
	}

	name := preferred
	if owner, ok := n.taken[nameKey(name)]; ok && owner != path {
		name = qualified(preferred, path)
	}
	for i := 2; ; i++ {
		owner, ok := n.taken[nameKey(name)]
		if !ok || owner == path {
			break
		}
		name = fmt.Sprintf("%s_%d", qualified(preferred, path), i)
	}

	n.byPath[path] = name
	n.taken[nameKey(name)] = path
	return name
}

func qualified(stem, path string) string {
	ext := sanitize(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")))
	if ext == "" || strings.HasSuffix(strings.ToLower(stem), "_"+ext) {
		return stem
	}
	return stem + "_" + ext
}

func nameKey(name string) string {
	return strings.ToLower(name)
}
