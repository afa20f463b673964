package srv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanup_ReverseOrder(t *testing.T) {
	var order []string
	c := NewCleanup("store",
		func() error { order = append(order, "db"); return nil },
		func() error { order = append(order, "staging"); return nil },
	)

	assert.NoError(t, c.Start(context.Background()))
	assert.NoError(t, c.Shutdown(context.Background()))
	assert.Equal(t, []string{"staging", "db"}, order)
}

func TestCleanup_RunsAllAndJoinsErrors(t *testing.T) {
	closed := false
	busy := errors.New("database is locked")
	c := NewCleanup("store",
		func() error { closed = true; return nil },
		func() error { return busy },
	)

	err := c.Shutdown(context.Background())
	assert.ErrorIs(t, err, busy)
	assert.Contains(t, err.Error(), "store cleanup")
	assert.True(t, closed)
}
