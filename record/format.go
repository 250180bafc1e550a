package record

import (
	"bytes"
	"errors"
	"strconv"
	"time"
	"unicode/utf8"
)

// TimeLayout is the timestamp layout of a record, always with milliseconds.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Format renders ev as a single newline-terminated line.
//
// maxContext bounds the escaped diagnostic context in bytes; 0 means
// unbounded.
func Format(ev Event, maxContext int) []byte {
	return AppendFormat(make([]byte, 0, 256), ev, maxContext)
}

// AppendFormat is like Format but appends to dst.
func AppendFormat(dst []byte, ev Event, maxContext int) []byte {
	sec := SectionOf(ev.Pos)
	origin := sec.Origin()

	dst = append(dst, "time="...)
	dst = ev.Time.Truncate(time.Millisecond).AppendFormat(dst, TimeLayout)
	dst = append(dst, " type="...)
	dst = append(dst, ev.Kind.String()...)
	dst = append(dst, " entity="...)
	dst = appendToken(dst, ev.EntityType)
	dst = append(dst, " uuid="...)
	dst = append(dst, ev.EntityID.String()...)
	dst = append(dst, " dimension="...)
	dst = appendToken(dst, ev.Dimension)

	dst = append(dst, " section.x="...)
	dst = strconv.AppendInt(dst, int64(sec.X), 10)
	dst = append(dst, " section.y="...)
	dst = strconv.AppendInt(dst, int64(sec.Y), 10)
	dst = append(dst, " section.z="...)
	dst = strconv.AppendInt(dst, int64(sec.Z), 10)

	dst = append(dst, " offset.x="...)
	dst = strconv.AppendFloat(dst, ev.Pos.X-origin.X, 'f', 6, 64)
	dst = append(dst, " offset.y="...)
	dst = strconv.AppendFloat(dst, ev.Pos.Y-origin.Y, 'f', 6, 64)
	dst = append(dst, " offset.z="...)
	dst = strconv.AppendFloat(dst, ev.Pos.Z-origin.Z, 'f', 6, 64)

	dst = append(dst, ` stacktrace="`...)
	dst = AppendContext(dst, ev.Context, maxContext)
	return append(dst, '"', '\n')
}

var kindField = []byte(" type=")

// KindOf returns the kind of a line written by Format.
func KindOf(line []byte) (Kind, error) {
	i := bytes.Index(line, kindField)
	if i < 0 {
		return 0, errors.New("record has no type field")
	}
	v := line[i+len(kindField):]
	if j := bytes.IndexByte(v, ' '); j >= 0 {
		v = v[:j]
	}
	return ParseKind(string(v))
}

// appendToken writes an unquoted field value. Spaces and control characters
// are \u-escaped so they cannot split the field or the line. Invalid UTF-8
// is written as \uFFFD.
func appendToken(dst []byte, s string) []byte {
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c <= ' ' || c == 0x7f {
				dst = appendUnicode(dst, rune(c))
			} else {
				dst = append(dst, c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = appendUnicode(dst, utf8.RuneError)
		} else {
			dst = append(dst, s[i:i+size]...)
		}
		i += size
	}
	return dst
}
