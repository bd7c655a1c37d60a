package lstore

// matchPattern reports whether key matches the Redis style glob pattern.
// Supported are '*' (any sequence, including '/'), '?' (any single byte),
// character classes like [abc], [a-z] and [^a] and the '\' escape.
func matchPattern(key, pattern string) bool {
	return matchAt(key, pattern, 0, 0, make(map[[2]int]bool))
}

// matchAt implements recursive pattern matching with memoization
func matchAt(str, pattern string, strIdx, patIdx int, memo map[[2]int]bool) bool {
	memoKey := [2]int{strIdx, patIdx}
	if result, exists := memo[memoKey]; exists {
		return result
	}

	var result bool
	switch {
	case patIdx == len(pattern):
		result = strIdx == len(str)

	case pattern[patIdx] == '*':
		// zero characters, or one more character
		result = matchAt(str, pattern, strIdx, patIdx+1, memo) ||
			(strIdx < len(str) && matchAt(str, pattern, strIdx+1, patIdx, memo))

	case strIdx == len(str):
		result = false

	case pattern[patIdx] == '?':
		result = matchAt(str, pattern, strIdx+1, patIdx+1, memo)

	case pattern[patIdx] == '[':
		ok, next := matchClass(str[strIdx], pattern, patIdx)
		result = ok && matchAt(str, pattern, strIdx+1, next, memo)

	case pattern[patIdx] == '\\' && patIdx+1 < len(pattern):
		result = pattern[patIdx+1] == str[strIdx] && matchAt(str, pattern, strIdx+1, patIdx+2, memo)

	default:
		result = pattern[patIdx] == str[strIdx] && matchAt(str, pattern, strIdx+1, patIdx+1, memo)
	}

	memo[memoKey] = result
	return result
}

// matchClass matches c against the class starting at pattern[start] == '['.
// It returns whether c matched and the pattern index after the closing ']'.
// An unterminated class is matched against the rest of the pattern, like Redis does.
func matchClass(c byte, pattern string, start int) (bool, int) {
	i := start + 1
	negate := i < len(pattern) && pattern[i] == '^'
	if negate {
		i++
	}

	matched := false
	for i < len(pattern) && pattern[i] != ']' {
		switch {
		case pattern[i] == '\\' && i+1 < len(pattern):
			if pattern[i+1] == c {
				matched = true
			}
			i += 2
		case i+2 < len(pattern) && pattern[i+1] == '-' && pattern[i+2] != ']':
			lo, hi := pattern[i], pattern[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if c >= lo && c <= hi {
				matched = true
			}
			i += 3
		default:
			if pattern[i] == c {
				matched = true
			}
			i++
		}
	}

	// skip the closing bracket if present
	if i < len(pattern) {
		i++
	}
	return matched != negate, i
}
