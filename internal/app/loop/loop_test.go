package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDrain_RunsInPostOrder(t *testing.T) {
	l := New()

	var got []int
	for i := 1; i <= 3; i++ {
		require.NoError(t, l.Post(func() { got = append(got, i) }))
	}

	assert.Equal(t, 3, l.Pending())
	assert.Equal(t, 3, l.Drain())
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Zero(t, l.Drain())
}

func TestDrain_DefersClosuresPostedWhileDraining(t *testing.T) {
	l := New()

	ran := 0
	require.NoError(t, l.Post(func() {
		ran++
		_ = l.Post(func() { ran++ })
	}))

	assert.Equal(t, 1, l.Drain())
	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, l.Drain())
	assert.Equal(t, 2, ran)
}

func TestPost_FromManyGoroutines(t *testing.T) {
	l := New()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Post(func() {})
		}()
	}
	wg.Wait()

	assert.Equal(t, 32, l.Drain())
}

func TestRun_ExecutesUntilCancelled(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	ran := make(chan struct{})
	require.NoError(t, l.Post(func() { close(ran) }))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("posted closure did not run")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestClose_RejectsPostsButKeepsQueue(t *testing.T) {
	l := New()

	ran := false
	require.NoError(t, l.Post(func() { ran = true }))
	l.Close()

	assert.ErrorIs(t, l.Post(func() {}), ErrClosed)
	assert.Equal(t, 1, l.Drain())
	assert.True(t, ran)
}

func TestDrain_RecoversPanics(t *testing.T) {
	l := New()

	after := false
	require.NoError(t, l.Post(func() { panic("boom") }))
	require.NoError(t, l.Post(func() { after = true }))

	assert.NotPanics(t, func() { l.Drain() })
	assert.True(t, after)
}
