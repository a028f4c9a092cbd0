package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommitmentEnd(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 4, 15, 10, 30, 0, 0, time.UTC), CommitmentEnd(start))

	// Month arithmetic over a short month normalizes forward.
	nov30 := time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), CommitmentEnd(nov30))
}

func TestWithinCommitment(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-time.Second)

	assert.False(t, WithinCommitment(now, nil))
	assert.True(t, WithinCommitment(now, &future))
	assert.False(t, WithinCommitment(now, &past))
	assert.False(t, WithinCommitment(now, &now), "boundary instant is outside the window")
}

func TestRemainingDays(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		until time.Time
		want  int
	}{
		{"already past", now.Add(-time.Hour), 0},
		{"exactly now", now, 0},
		{"partial day rounds up", now.Add(time.Hour), 1},
		{"exactly one day", now.Add(24 * time.Hour), 1},
		{"one day and a second", now.Add(24*time.Hour + time.Second), 2},
		{"ninety days", now.AddDate(0, 0, 90), 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemainingDays(now, tt.until))
		})
	}
}
