package partition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("time zone %s unavailable: %v", name, err)
	}
	return loc
}

func TestKeyOf_SameHour(t *testing.T) {
	loc := time.UTC
	a := time.Date(2024, 3, 1, 19, 45, 0, 0, loc)
	b := time.Date(2024, 3, 1, 19, 59, 59, 999_999_999, loc)
	c := time.Date(2024, 3, 1, 19, 0, 0, 0, loc)

	assert.Equal(t, KeyOf(a, loc), KeyOf(b, loc))
	assert.Equal(t, KeyOf(a, loc), KeyOf(c, loc))
	assert.Equal(t, "2024-03-01T19", KeyOf(a, loc).Name())
}

func TestKeyOf_HourBoundary(t *testing.T) {
	loc := time.UTC
	before := time.Date(2024, 3, 1, 19, 59, 59, 0, loc)
	after := before.Add(time.Second)

	assert.NotEqual(t, KeyOf(before, loc), KeyOf(after, loc))
	assert.Equal(t, "2024-03-01T20", KeyOf(after, loc).Name())
	assert.True(t, KeyOf(before, loc).Before(KeyOf(after, loc)))
	assert.False(t, KeyOf(after, loc).Before(KeyOf(before, loc)))
	assert.False(t, KeyOf(after, loc).Before(KeyOf(after, loc)))
}

func TestKeyOf_UsesLocation(t *testing.T) {
	shanghai := mustLoc(t, "Asia/Shanghai")
	ts := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-01T23", KeyOf(ts, time.UTC).Name())
	assert.Equal(t, "2024-03-02T07", KeyOf(ts, shanghai).Name())
}

func TestKey_NamePadsHour(t *testing.T) {
	k := Key{Year: 2024, Month: time.January, Day: 9, Hour: 5}
	assert.Equal(t, "2024-01-09T05", k.Name())
	assert.Equal(t, "2024-01-09T05.log", LogFileName(k))
	assert.Equal(t, "2024-01-09T05.log.gz", ArchiveFileName(k))
	assert.Equal(t, "2024-01-09T05.log.gz.tmp-*", TempPattern(k))
}

func TestKey_Before(t *testing.T) {
	base := Key{Year: 2024, Month: time.March, Day: 1, Hour: 19}
	tests := []struct {
		name  string
		other Key
		want  bool
	}{
		{"next hour", Key{2024, time.March, 1, 20}, true},
		{"next day earlier hour", Key{2024, time.March, 2, 0}, true},
		{"next month", Key{2024, time.April, 1, 0}, true},
		{"next year", Key{2025, time.January, 1, 0}, true},
		{"same", base, false},
		{"previous hour", Key{2024, time.March, 1, 18}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Before(tt.other))
		})
	}
}

func TestKey_TimeRoundTrip(t *testing.T) {
	loc := time.UTC
	k := Key{Year: 2024, Month: time.March, Day: 1, Hour: 19}
	assert.Equal(t, time.Date(2024, 3, 1, 19, 0, 0, 0, loc), k.Time(loc))
	assert.Equal(t, k, KeyOf(k.Time(loc), loc))
}

func TestParseLogFileName(t *testing.T) {
	k, ok := ParseLogFileName("2024-03-01T19.log")
	require.True(t, ok)
	assert.Equal(t, Key{2024, time.March, 1, 19}, k)

	for _, name := range []string{
		"2024-03-01T19.log.gz",
		"2024-03-01T9.log",
		"2024-03-01T24.log",
		"2024-13-01T01.log",
		"notes.log",
		"2024-03-01T19.txt",
	} {
		_, ok := ParseLogFileName(name)
		assert.False(t, ok, name)
	}
}

func TestIsTempArchive(t *testing.T) {
	assert.True(t, IsTempArchive("2024-03-01T19.log.gz.tmp-123456"))
	assert.False(t, IsTempArchive("2024-03-01T19.log.gz"))
	assert.False(t, IsTempArchive("2024-03-01T19.log"))
	assert.False(t, IsTempArchive("other.log.gz.tmp-1"))
}
