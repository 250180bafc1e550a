package record

const hexDigits = "0123456789ABCDEF"

// TruncatedMarker terminates a context that hit the size bound.
const TruncatedMarker = "...(truncated)"

// AppendEscaped appends s to dst using ECMAScript string escaping.
//
// Quotes, backslash and slash are backslash-escaped, the common control
// characters use their short forms and every other rune outside printable
// ASCII becomes \uXXXX (a surrogate pair above the BMP). Invalid UTF-8 is
// written as \uFFFD.
func AppendEscaped(dst []byte, s string) []byte {
	for _, r := range s {
		dst = appendRune(dst, r)
	}
	return dst
}

func appendRune(dst []byte, r rune) []byte {
	switch r {
	case '\'', '"', '\\', '/':
		return append(dst, '\\', byte(r))
	case '\b':
		return append(dst, '\\', 'b')
	case '\n':
		return append(dst, '\\', 'n')
	case '\t':
		return append(dst, '\\', 't')
	case '\f':
		return append(dst, '\\', 'f')
	case '\r':
		return append(dst, '\\', 'r')
	}
	if r >= 0x20 && r <= 0x7f {
		return append(dst, byte(r))
	}
	if r > 0xFFFF {
		r -= 0x10000
		dst = appendUnicode(dst, 0xD800+(r>>10))
		return appendUnicode(dst, 0xDC00+(r&0x3FF))
	}
	return appendUnicode(dst, r)
}

func appendUnicode(dst []byte, r rune) []byte {
	return append(dst, '\\', 'u',
		hexDigits[(r>>12)&0xF],
		hexDigits[(r>>8)&0xF],
		hexDigits[(r>>4)&0xF],
		hexDigits[r&0xF],
	)
}

// escapedLen returns the number of bytes appendRune writes for r.
func escapedLen(r rune) int {
	switch r {
	case '\'', '"', '\\', '/', '\b', '\n', '\t', '\f', '\r':
		return 2
	}
	switch {
	case r >= 0x20 && r <= 0x7f:
		return 1
	case r > 0xFFFF:
		return 12
	default:
		return 6
	}
}

// truncatedLen is the size of the marker that ends a cut context.
const truncatedLen = len(TruncatedMarker) + 2

// AppendContext appends the escaped entries of ctx, each followed by a
// literal \n marker. If limit > 0 the appended bytes never exceed limit: a
// context that does not fit is cut at a rune boundary and ends with
// TruncatedMarker, which counts against the limit. Limits smaller than the
// marker are raised to its size.
func AppendContext(dst []byte, ctx []string, limit int) []byte {
	if limit <= 0 || fits(ctx, limit) {
		for _, entry := range ctx {
			dst = AppendEscaped(dst, entry)
			dst = append(dst, '\\', 'n')
		}
		return dst
	}

	budget := max(limit-truncatedLen, 0)
	used := 0
	for _, entry := range ctx {
		for _, r := range entry {
			n := escapedLen(r)
			if used+n > budget {
				return appendTruncated(dst)
			}
			dst = appendRune(dst, r)
			used += n
		}
		if used+2 > budget {
			return appendTruncated(dst)
		}
		dst = append(dst, '\\', 'n')
		used += 2
	}
	return appendTruncated(dst)
}

// fits reports whether the escaped ctx takes at most limit bytes.
func fits(ctx []string, limit int) bool {
	n := 0
	for _, entry := range ctx {
		for _, r := range entry {
			n += escapedLen(r)
		}
		n += 2
		if n > limit {
			return false
		}
	}
	return true
}

func appendTruncated(dst []byte) []byte {
	dst = append(dst, TruncatedMarker...)
	return append(dst, '\\', 'n')
}
