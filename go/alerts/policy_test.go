package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.yoptima.org/infra/go/now"
	"go.yoptima.org/infra/go/testutils/unittest"
)

var testLevels = map[string]float64{
	"1": 0,
	"2": 24,
	"3": 72,
}

func testPolicy(t *testing.T) *Policy {
	p, err := NewPolicy(testLevels, time.UTC)
	require.NoError(t, err)
	return p
}

func alertAgedHours(ctx *now.TimeTravelCtx, level int, hours float64) *Alert {
	return &Alert{
		ID:                  "12345",
		Hash:                "somehash",
		AdvertiserID:        42,
		Type:                "IO_Daily_Budget_Alert",
		EscalationLevel:     level,
		GenerationTimestamp: now.Now(ctx).Add(-time.Duration(hours * float64(time.Hour))),
		Active:              true,
	}
}

func TestDecide_NoExistingAlert_LevelOne(t *testing.T) {
	unittest.SmallTest(t)
	ctx := now.TimeTravelingContext(time.Date(2023, time.June, 1, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, testPolicy(t).Decide(ctx, nil))
}

func TestDecide_DeactivatedAlert_NoEscalation(t *testing.T) {
	unittest.SmallTest(t)
	ctx := now.TimeTravelingContext(time.Date(2023, time.June, 1, 9, 0, 0, 0, time.UTC))
	p := testPolicy(t)
	for _, hours := range []float64{0.5, 30, 100, 10000} {
		a := alertAgedHours(ctx, 1, hours)
		a.Active = false
		assert.Equal(t, NoEscalation, p.Decide(ctx, a), "inactive alert aged %0.1fh", hours)
	}
}

func TestDecide_FreshAlert_NothingNewToReport(t *testing.T) {
	unittest.SmallTest(t)
	// Scenario: record created moments ago, level 1. The (0h, 24h) bracket
	// matches but level 1 has already been reached.
	ctx := now.TimeTravelingContext(time.Date(2023, time.June, 1, 9, 0, 0, 0, time.UTC))
	a := alertAgedHours(ctx, 1, 0.5)
	assert.Equal(t, NoEscalation, testPolicy(t).Decide(ctx, a))
}

func TestDecide_CrossedIntoSecondBracket_LevelTwo(t *testing.T) {
	unittest.SmallTest(t)
	// 24 < 30 < 72 and 2 > current level 1.
	ctx := now.TimeTravelingContext(time.Date(2023, time.June, 1, 9, 0, 0, 0, time.UTC))
	a := alertAgedHours(ctx, 1, 30)
	assert.Equal(t, 2, testPolicy(t).Decide(ctx, a))
}

func TestDecide_BracketAlreadyReached_NoEscalation(t *testing.T) {
	unittest.SmallTest(t)
	// Same elapsed time but the record is already at level 2.
	ctx := now.TimeTravelingContext(time.Date(2023, time.June, 1, 9, 0, 0, 0, time.UTC))
	a := alertAgedHours(ctx, 2, 30)
	assert.Equal(t, NoEscalation, testPolicy(t).Decide(ctx, a))
}

func TestDecide_PastTerminalThreshold_TerminalLevel(t *testing.T) {
	unittest.SmallTest(t)
	// Beyond the largest threshold the terminal level fires regardless of the
	// current level, even when the record is already terminal.
	ctx := now.TimeTravelingContext(time.Date(2023, time.June, 1, 9, 0, 0, 0, time.UTC))
	p := testPolicy(t)
	for _, level := range []int{1, 2, 3} {
		a := alertAgedHours(ctx, level, 100)
		assert.Equal(t, 3, p.Decide(ctx, a), "current level %d", level)
	}
}

func TestDecide_ElapsedExactlyOnBoundary_FallsBackToLevelOne(t *testing.T) {
	unittest.SmallTest(t)
	ctx := now.TimeTravelingContext(time.Date(2023, time.June, 1, 9, 0, 0, 0, time.UTC))
	a := alertAgedHours(ctx, 1, 24)
	assert.Equal(t, 1, testPolicy(t).Decide(ctx, a))
}

func TestDecide_ElapsedCountsWholeDays(t *testing.T) {
	unittest.SmallTest(t)
	// 3 days and 1 hour is 73 elapsed hours, past the 72h terminal threshold.
	// Guards against measuring only the sub-day remainder of the interval.
	ctx := now.TimeTravelingContext(time.Date(2023, time.June, 4, 10, 0, 0, 0, time.UTC))
	a := &Alert{
		ID:                  "1",
		EscalationLevel:     2,
		GenerationTimestamp: time.Date(2023, time.June, 1, 9, 0, 0, 0, time.UTC),
		Active:              true,
	}
	assert.Equal(t, 3, testPolicy(t).Decide(ctx, a))
}

func TestDecide_TimezoneIndependent(t *testing.T) {
	unittest.SmallTest(t)
	// The generation timestamp carries a different zone than the policy's
	// reference location; elapsed time must be unaffected.
	kolkata, err := time.LoadLocation("Asia/Calcutta")
	require.NoError(t, err)
	p, err := NewPolicy(testLevels, kolkata)
	require.NoError(t, err)

	gen := time.Date(2023, time.June, 1, 9, 0, 0, 0, time.UTC)
	ctx := now.TimeTravelingContext(gen.Add(30 * time.Hour))
	a := &Alert{ID: "1", EscalationLevel: 1, GenerationTimestamp: gen, Active: true}
	assert.Equal(t, 2, p.Decide(ctx, a))
}

func TestDecide_LevelSequenceIsMonotonic(t *testing.T) {
	unittest.SmallTest(t)
	// Walk time forward over a fixed record, applying each non-NoEscalation
	// decision back onto the record. The fired levels must be strictly
	// increasing until the terminal level, then only terminal.
	p := testPolicy(t)
	gen := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	ctx := now.TimeTravelingContext(gen)
	a := &Alert{ID: "1", EscalationLevel: 1, GenerationTimestamp: gen, Active: true}

	fired := []int{}
	for h := 1; h <= 200; h += 7 {
		ctx.SetTime(gen.Add(time.Duration(h) * time.Hour))
		level := p.Decide(ctx, a)
		if level == NoEscalation {
			continue
		}
		fired = append(fired, level)
		if level > a.EscalationLevel {
			a.EscalationLevel = level
		}
	}
	require.NotEmpty(t, fired)
	terminal := p.Terminal().Level
	sawTerminal := false
	for i, level := range fired {
		if sawTerminal {
			assert.Equal(t, terminal, level, "after the terminal level only the terminal level may fire")
			continue
		}
		if i > 0 {
			assert.Greater(t, level, fired[i-1])
		}
		if level == terminal {
			sawTerminal = true
		}
	}
	assert.True(t, sawTerminal)
}

func TestNewPolicy_Validation(t *testing.T) {
	unittest.SmallTest(t)

	check := func(levels map[string]float64, substr string) {
		_, err := NewPolicy(levels, time.UTC)
		require.Error(t, err)
		assert.Contains(t, err.Error(), substr)
	}
	check(map[string]float64{}, "at least 2 levels")
	check(map[string]float64{"1": 0}, "at least 2 levels")
	check(map[string]float64{"one": 0, "2": 24}, "not an integer")
	check(map[string]float64{"0": 0, "2": 24}, "must be >= 1")
	check(map[string]float64{"1": -4, "2": 24}, "negative")

	p, err := NewPolicy(map[string]float64{"1": 0, "2": 24, "3": 72, "4": 168}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, PolicyEntry{Level: 4, Hours: 168}, p.Terminal())
}
