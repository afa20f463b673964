// Package window keeps a bounded, per-conversation list of recent turns.
package window

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sandevgo/muse/internal/core"
)

const DefaultSize = 30

type conversation struct {
	mu    sync.Mutex
	turns []core.Turn
}

// Window is safe for concurrent use. Operations on one conversation are
// serialized; different conversations never block each other.
type Window struct {
	size int

	mu    sync.RWMutex
	convs map[string]*conversation
}

func New(size int) *Window {
	if size <= 0 {
		size = DefaultSize
	}
	return &Window{
		size:  size,
		convs: make(map[string]*conversation),
	}
}

func (w *Window) Size() int {
	return w.size
}

func (w *Window) get(convID string, create bool) *conversation {
	w.mu.RLock()
	c, ok := w.convs[convID]
	w.mu.RUnlock()
	if ok || !create {
		return c
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok = w.convs[convID]; ok {
		return c
	}
	c = &conversation{}
	w.convs[convID] = c
	return c
}

// Append adds t to the tail of the conversation and returns its sequence id.
// An existing turn with the same id is replaced and moves to the tail.
func (w *Window) Append(convID string, t core.Turn) string {
	if t.SequenceID == "" {
		t.SequenceID = uuid.NewString()
	}

	c := w.get(convID, true)
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := indexOf(c.turns, t.SequenceID); i >= 0 {
		c.turns = append(c.turns[:i], c.turns[i+1:]...)
	}
	c.turns = append(c.turns, t)

	if over := len(c.turns) - w.size; over > 0 {
		c.turns = append([]core.Turn(nil), c.turns[over:]...)
	}
	return t.SequenceID
}

// Remove drops the turn with seqID. It reports false when the turn is gone already.
func (w *Window) Remove(convID, seqID string) bool {
	c := w.get(convID, false)
	if c == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := indexOf(c.turns, seqID)
	if i < 0 {
		return false
	}
	c.turns = append(c.turns[:i], c.turns[i+1:]...)
	return true
}

// EvictOldest drops the head of the conversation.
func (w *Window) EvictOldest(convID string) bool {
	c := w.get(convID, false)
	if c == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.turns) == 0 {
		return false
	}
	c.turns = c.turns[1:]
	return true
}

// Render returns the turns as "author: text" lines, oldest first.
func (w *Window) Render(convID string) []string {
	c := w.get(convID, false)
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]string, len(c.turns))
	for i, t := range c.turns {
		lines[i] = t.String()
	}
	return lines
}

// Turns returns a copy of the conversation.
func (w *Window) Turns(convID string) []core.Turn {
	c := w.get(convID, false)
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Turn(nil), c.turns...)
}

func (w *Window) Len(convID string) int {
	c := w.get(convID, false)
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

func indexOf(turns []core.Turn, seqID string) int {
	for i, t := range turns {
		if t.SequenceID == seqID {
			return i
		}
	}
	return -1
}
