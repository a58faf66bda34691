package registry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ n int }

func TestRegistry_AddDoRemove(t *testing.T) {
	r := New[*counter](time.Hour)
	id := r.Add(&counter{})
	require.NotEmpty(t, id)

	require.NoError(t, r.Do(id, func(c *counter) error { c.n++; return nil }))
	require.NoError(t, r.Do(id, func(c *counter) error {
		assert.Equal(t, 1, c.n)
		return nil
	}))

	boom := errors.New("boom")
	assert.ErrorIs(t, r.Do(id, func(*counter) error { return boom }), boom)

	r.Remove(id)
	assert.ErrorIs(t, r.Do(id, func(*counter) error { return nil }), ErrUnknown)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := New[*counter](time.Minute)
	r.now = func() time.Time { return now }

	stale := r.Add(&counter{})
	now = now.Add(2 * time.Minute)

	assert.ErrorIs(t, r.Do(stale, func(*counter) error { return nil }), ErrUnknown)

	kept := r.Add(&counter{})
	other := r.Add(&counter{})
	now = now.Add(30 * time.Second)
	require.NoError(t, r.Do(kept, func(*counter) error { return nil }))
	now = now.Add(45 * time.Second)

	// other idled 75s and is pruned on the next Add; kept was touched 45s ago
	r.Add(&counter{})
	assert.Equal(t, 2, r.Len())
	assert.ErrorIs(t, r.Do(other, func(*counter) error { return nil }), ErrUnknown)
	assert.NoError(t, r.Do(kept, func(*counter) error { return nil }))
}

func TestRegistry_SerializesPerEntry(t *testing.T) {
	r := New[*counter](0)
	id := r.Add(&counter{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Do(id, func(c *counter) error { c.n++; return nil })
		}()
	}
	wg.Wait()

	require.NoError(t, r.Do(id, func(c *counter) error {
		assert.Equal(t, 50, c.n)
		return nil
	}))
}

func TestRegistry_TryDo(t *testing.T) {
	r := New[*counter](time.Hour)
	id := r.Add(&counter{})

	assert.ErrorIs(t, r.TryDo("nope", func(*counter) error { return nil }), ErrUnknown)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- r.Do(id, func(c *counter) error {
			close(entered)
			<-release
			c.n++
			return nil
		})
	}()
	<-entered

	ran := false
	assert.ErrorIs(t, r.TryDo(id, func(*counter) error { ran = true; return nil }), ErrBusy)
	assert.False(t, ran)

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, r.TryDo(id, func(c *counter) error {
		assert.Equal(t, 1, c.n)
		return nil
	}))
}
