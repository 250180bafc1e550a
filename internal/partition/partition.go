// Package partition maps timestamps to hour-sized log partitions and names
// their files.
package partition

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// LogExt is the extension of a raw, still writable partition.
	LogExt = ".log"
	// ArchiveExt is the extension of a compressed partition.
	ArchiveExt = ".log.gz"
	// TempInfix marks an archive that is still being written.
	TempInfix = ".tmp-"
)

// Key identifies one calendar hour of local wall-clock time.
//
// Key is comparable and safe to use as a map key.
type Key struct {
	Year  int
	Month time.Month
	Day   int
	Hour  int
}

// KeyOf truncates t to the hour in loc.
func KeyOf(t time.Time, loc *time.Location) Key {
	if loc != nil {
		t = t.In(loc)
	}
	return Key{Year: t.Year(), Month: t.Month(), Day: t.Day(), Hour: t.Hour()}
}

// Time returns the start of the hour in loc.
func (k Key) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(k.Year, k.Month, k.Day, k.Hour, 0, 0, 0, loc)
}

// Before reports whether k is strictly older than other.
func (k Key) Before(other Key) bool {
	switch {
	case k.Year != other.Year:
		return k.Year < other.Year
	case k.Month != other.Month:
		return k.Month < other.Month
	case k.Day != other.Day:
		return k.Day < other.Day
	default:
		return k.Hour < other.Hour
	}
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool { return k == Key{} }

// Name returns the filesystem-safe identifier, e.g. "2024-03-01T05".
func (k Key) Name() string {
	return fmt.Sprintf("%04d-%02d-%02dT%d%d", k.Year, int(k.Month), k.Day, k.Hour/10, k.Hour%10)
}

func (k Key) String() string { return k.Name() }

// LogFileName returns the raw partition file name.
func LogFileName(k Key) string { return k.Name() + LogExt }

// ArchiveFileName returns the compressed partition file name.
func ArchiveFileName(k Key) string { return k.Name() + ArchiveExt }

// TempPattern returns the os.CreateTemp pattern for an in-progress archive.
func TempPattern(k Key) string { return k.Name() + ArchiveExt + TempInfix + "*" }

// IsTempArchive reports whether name is an in-progress archive.
func IsTempArchive(name string) bool {
	i := strings.Index(name, ArchiveExt+TempInfix)
	if i <= 0 {
		return false
	}
	_, ok := ParseName(name[:i])
	return ok
}

// ParseLogFileName parses a raw partition file name.
func ParseLogFileName(name string) (Key, bool) {
	base, ok := strings.CutSuffix(name, LogExt)
	if !ok {
		return Key{}, false
	}
	return ParseName(base)
}

// ParseName parses an identifier produced by Key.Name.
func ParseName(s string) (Key, bool) {
	date, hour, ok := strings.Cut(s, "T")
	if !ok || len(hour) != 2 {
		return Key{}, false
	}
	h, err := strconv.Atoi(hour)
	if err != nil || h < 0 || h > 23 {
		return Key{}, false
	}
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return Key{}, false
	}
	return Key{Year: d.Year(), Month: d.Month(), Day: d.Day(), Hour: h}, true
}
