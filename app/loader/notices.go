package loader

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultNoticeTTL = 5 * time.Second

type Notice struct {
	ID        string
	Message   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ExpiresIn is the time left before the notice disappears on its own.
func (n Notice) ExpiresIn(now time.Time) time.Duration {
	if left := n.ExpiresAt.Sub(now); left > 0 {
		return left
	}
	return 0
}

// Board stacks dismissible notices that expire after a fixed TTL.
// The zero value is not usable; create one with NewBoard.
type Board struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	notices []Notice
}

func NewBoard(ttl time.Duration) *Board {
	return &Board{ttl: ttl, now: time.Now}
}

func (b *Board) Show(message string) Notice {
	now := b.now()
	notice := Notice{
		ID:        uuid.NewString(),
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(b.ttl),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, notice)

	return notice
}

func (b *Board) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, n := range b.notices {
		if n.ID == id {
			b.notices = append(b.notices[:i], b.notices[i+1:]...)
			return true
		}
	}
	return false
}

// Active returns the unexpired notices, oldest first, and forgets the rest.
func (b *Board) Active() []Notice {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.notices[:0]
	for _, n := range b.notices {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	b.notices = kept

	out := make([]Notice, len(kept))
	copy(out, kept)
	return out
}
