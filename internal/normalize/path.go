package normalize

import (
	"fmt"
	"strconv"
	"strings"
)

// pathSegment is one step of a dot-path: a key, optionally followed by
// one or more [index] lookups.
type pathSegment struct {
	key     string
	indexes []int
}

// parsePath splits "a.b[0].c" into segments.
func parsePath(path string) ([]pathSegment, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("path is empty")
	}

	var segments []pathSegment
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, fmt.Errorf("path %q has an empty segment", path)
		}
		seg := pathSegment{}
		open := strings.IndexByte(part, '[')
		if open < 0 {
			seg.key = part
			segments = append(segments, seg)
			continue
		}
		seg.key = part[:open]
		rest := part[open:]
		for rest != "" {
			if rest[0] != '[' {
				return nil, fmt.Errorf("path %q: unexpected %q", path, rest)
			}
			closeIdx := strings.IndexByte(rest, ']')
			if closeIdx < 0 {
				return nil, fmt.Errorf("path %q: unterminated index", path)
			}
			idx, err := strconv.Atoi(rest[1:closeIdx])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("path %q: invalid index %q", path, rest[1:closeIdx])
			}
			seg.indexes = append(seg.indexes, idx)
			rest = rest[closeIdx+1:]
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// ValidatePath reports whether path is a syntactically valid dot-path.
func ValidatePath(path string) error {
	_, err := parsePath(path)
	return err
}

// ResolvePath walks a decoded JSON value along a dot-path such as
// "data.steps" or "runs[0].events". It never panics; a missing or
// mistyped segment yields false.
func ResolvePath(root any, path string) (any, bool) {
	segments, err := parsePath(path)
	if err != nil {
		return nil, false
	}

	current := root
	for _, seg := range segments {
		if seg.key != "" {
			obj, ok := asMap(current)
			if !ok {
				return nil, false
			}
			current, ok = obj[seg.key]
			if !ok {
				return nil, false
			}
		}
		for _, idx := range seg.indexes {
			arr, ok := asSlice(current)
			if !ok || idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}
	}
	return current, true
}
