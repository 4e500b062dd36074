package alerts

import (
	"context"
	"sort"
	"strconv"
	"time"

	"go.yoptima.org/infra/go/now"
	"go.yoptima.org/infra/go/skerr"
	"go.yoptima.org/infra/go/sklog"
)

// PolicyEntry maps one escalation level to the elapsed-hours threshold at
// which it applies.
type PolicyEntry struct {
	Level int
	Hours float64
}

// Policy is an ordered table of escalation levels. It is immutable once
// built; construct it at startup and share it.
type Policy struct {
	// entries is sorted ascending by Hours.
	entries []PolicyEntry

	// loc is the fixed reference timezone used for both endpoints of every
	// elapsed-time computation, so results don't depend on the host timezone.
	loc *time.Location
}

// NewPolicy builds a Policy from configuration, where keys are escalation
// levels as decimal strings and values are threshold hours. Malformed or
// insufficient configuration is rejected here so processes fail at startup
// rather than per-invocation.
func NewPolicy(levels map[string]float64, loc *time.Location) (*Policy, error) {
	if len(levels) < 2 {
		return nil, skerr.Fmt("escalation policy needs at least 2 levels, got %d", len(levels))
	}
	entries := make([]PolicyEntry, 0, len(levels))
	seen := map[int]bool{}
	for key, hours := range levels {
		level, err := strconv.Atoi(key)
		if err != nil {
			return nil, skerr.Wrapf(err, "escalation level %q is not an integer", key)
		}
		if level < 1 {
			return nil, skerr.Fmt("escalation level %d must be >= 1", level)
		}
		if seen[level] {
			return nil, skerr.Fmt("escalation level %d appears twice", level)
		}
		seen[level] = true
		if hours < 0 {
			return nil, skerr.Fmt("threshold for level %d is negative: %f", level, hours)
		}
		entries = append(entries, PolicyEntry{Level: level, Hours: hours})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Hours < entries[j].Hours
	})
	return &Policy{
		entries: entries,
		loc:     loc,
	}, nil
}

// Location returns the policy's fixed reference timezone.
func (p *Policy) Location() *time.Location {
	return p.loc
}

// Terminal returns the entry with the greatest threshold.
func (p *Policy) Terminal() PolicyEntry {
	return p.entries[len(p.entries)-1]
}

// Decide computes the escalation level a new occurrence of a condition should
// fire at, given the stored record for its logical alert (nil if none exists)
// and the current time from the context. It returns NoEscalation when no
// notification is warranted.
//
// The bracket walk below fires only when the elapsed time has crossed into a
// higher urgency band than the record has already reached, so repeated
// invocations at the same band stay silent. A condition open longer than the
// largest threshold always re-fires at the terminal level, even if the record
// is already there; this mirrors the producing system's established behavior
// (see DESIGN.md).
func (p *Policy) Decide(ctx context.Context, a *Alert) int {
	// Rule 1: first occurrence.
	if a == nil {
		sklog.Debugf("No existing alert; escalation level 1")
		return 1
	}

	// Rule 2: a deactivated alert is inert.
	if !a.Active {
		sklog.Debugf("Alert %s deactivated; no escalation", a.ID)
		return NoEscalation
	}

	current := a.EscalationLevel
	elapsed := now.Now(ctx).In(p.loc).Sub(a.GenerationTimestamp.In(p.loc)).Hours()

	// Terminal level: past the largest threshold the alert always re-fires at
	// the highest configured level.
	terminal := p.Terminal()
	if elapsed > terminal.Hours {
		sklog.Debugf("Alert %s %0.1fh old, past terminal threshold %0.1fh; escalation level %d", a.ID, elapsed, terminal.Hours, terminal.Level)
		return terminal.Level
	}

	// Walk adjacent threshold pairs looking for the bracket containing the
	// elapsed time. The last entry has no successor and is excluded; the
	// terminal case above already covers it.
	for i := 0; i < len(p.entries)-1; i++ {
		this, next := p.entries[i], p.entries[i+1]
		if elapsed > this.Hours && elapsed < next.Hours {
			if this.Level > current {
				sklog.Debugf("Alert %s %0.1fh old, in bracket (%0.1fh, %0.1fh); escalation level %d", a.ID, elapsed, this.Hours, next.Hours, this.Level)
				return this.Level
			}
			// The bracketed level was already reached; nothing new to report.
			return NoEscalation
		}
	}

	// No bracket matched: the elapsed time sits exactly on a threshold
	// boundary. Fall back to level 1; the controller treats level 1 against an
	// existing record as nothing-to-report.
	return 1
}
