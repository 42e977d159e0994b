package sorbe

import "strings"

// CheckKeyPaths reports the first key path that appears twice, then the first
// key path, in order, that is also a strict prefix of another path. Either makes the set
// of paths impossible to arrange as a tree.
func CheckKeyPaths(paths [][]string) error {
	return checkPaths(paths, nil)
}

func checkPatterns(patterns []Pattern) error {
	paths := make([][]string, len(patterns))
	lines := make([]int, len(patterns))
	for i, p := range patterns {
		paths[i] = p.Keys
		lines[i] = p.Line
	}

	return checkPaths(paths, lines)
}

// checkPaths runs both passes. lines, if non-nil, holds the source line of
// each path for error reporting.
func checkPaths(paths [][]string, lines []int) error {
	lineOf := func(i int) int {
		if lines == nil {
			return 0
		}
		return lines[i]
	}

	joined := make([]string, len(paths))
	seen := make(map[string]int, len(paths))
	for i, keys := range paths {
		joined[i] = strings.Join(keys, ".")
		if _, ok := seen[joined[i]]; ok {
			return &DocumentError{Key: joined[i], Line: lineOf(i), Err: ErrDuplicateKey}
		}
		seen[joined[i]] = i
	}

	// Interior paths map to their first descendant in document order.
	interior := make(map[string]int)
	for i, keys := range paths {
		prefix := 0
		for k := 0; k < len(keys)-1; k++ {
			prefix += len(keys[k])
			if k > 0 {
				prefix++ // Dot.
			}
			if _, ok := interior[joined[i][:prefix]]; !ok {
				interior[joined[i][:prefix]] = i
			}
		}
	}

	// The first path in document order that has children is reported.
	for i := range paths {
		j, ok := interior[joined[i]]
		if !ok {
			continue
		}
		return &DocumentError{
			Key:  joined[i],
			Line: max(lineOf(i), lineOf(j)),
			Err:  ErrKeyPathConflict,
		}
	}

	return nil
}
