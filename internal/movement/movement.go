// Package movement turns a stream of entity positions into section
// crossings.
package movement

import "github.com/teacon/eldbook/record"

// Tracker remembers the last known position of one entity and the section
// it was in. A Tracker is not safe for concurrent use; each entity callback
// owns its own.
type Tracker struct {
	pos     record.Vec3
	section record.Section
}

// NewTracker starts tracking at pos.
func NewTracker(pos record.Vec3) *Tracker {
	return &Tracker{pos: pos, section: record.SectionOf(pos)}
}

// Update records a new position. Moves inside the current section only
// refresh the cached position. When pos lies in another section, Update
// returns the previous and the new position with crossed set.
func (t *Tracker) Update(pos record.Vec3) (from, to record.Vec3, crossed bool) {
	section := record.SectionOf(pos)
	if section == t.section {
		t.pos = pos
		return pos, pos, false
	}
	from = t.pos
	t.pos, t.section = pos, section
	return from, pos, true
}

// Position returns the last recorded position.
func (t *Tracker) Position() record.Vec3 { return t.pos }

// Section returns the section of the last recorded position.
func (t *Tracker) Section() record.Section { return t.section }
