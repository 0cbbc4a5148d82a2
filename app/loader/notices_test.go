package loader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestBoard() (*Board, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	board := NewBoard(DefaultNoticeTTL)
	board.now = clock.Now
	return board, clock
}

func TestBoardStacksNotices(t *testing.T) {
	board, _ := newTestBoard()

	first := board.Show("first")
	second := board.Show("second")

	active := board.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, second.ID, active[1].ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestBoardExpiresAfterTTL(t *testing.T) {
	board, clock := newTestBoard()

	board.Show("old")
	clock.now = clock.now.Add(3 * time.Second)
	board.Show("new")

	clock.now = clock.now.Add(2 * time.Second)
	active := board.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "new", active[0].Message)
	assert.Equal(t, 3*time.Second, active[0].ExpiresIn(clock.now))

	clock.now = clock.now.Add(3 * time.Second)
	assert.Empty(t, board.Active())
}

func TestBoardDismiss(t *testing.T) {
	board, _ := newTestBoard()

	keep := board.Show("keep")
	drop := board.Show("drop")

	assert.True(t, board.Dismiss(drop.ID))
	assert.False(t, board.Dismiss(drop.ID))

	active := board.Active()
	require.Len(t, active, 1)
	assert.Equal(t, keep.ID, active[0].ID)
}

func TestNoticeExpiresInNeverNegative(t *testing.T) {
	notice := Notice{ExpiresAt: time.Unix(100, 0)}
	assert.Equal(t, time.Duration(0), notice.ExpiresIn(time.Unix(200, 0)))
}
