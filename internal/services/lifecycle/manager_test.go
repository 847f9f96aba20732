package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsHooksInReverseOrder(t *testing.T) {
	m := New(time.Second, nil)
	var order []string
	for _, name := range []string{"postgres", "buffer", "http_server"} {
		name := name
		m.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	m.Register("ignored", nil)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{"http_server", "buffer", "postgres"}, order)
	assert.Equal(t, 3, m.Len())
}

func TestShutdownJoinsErrorsAndKeepsGoing(t *testing.T) {
	m := New(time.Second, nil)
	boom := errors.New("boom")
	ran := false
	m.Register("first", func(context.Context) error {
		ran = true
		return nil
	})
	m.Register("broken", func(context.Context) error { return boom })

	err := m.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
	assert.True(t, ran)
}

func TestShutdownAppliesTimeout(t *testing.T) {
	m := New(20*time.Millisecond, nil)
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithSignalsFollowsParent(t *testing.T) {
	m := New(0, nil)
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := m.WithSignals(parent)
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with parent")
	}
}
