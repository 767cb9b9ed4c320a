package toolbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolved(t *testing.T) {
	f := Resolved("done", nil)

	select {
	case <-f.Done():
	default:
		t.Fatal("resolved future should be done")
	}

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestGo(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (int, error) {
		time.Sleep(5 * time.Millisecond)
		return 7, nil
	})

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGoError(t *testing.T) {
	boom := errors.New("boom")
	f := Go(context.Background(), func(context.Context) (int, error) { return 0, boom })

	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestGoPanic(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (int, error) { panic("oops") })

	_, err := f.Await(context.Background())
	require.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "oops")
}

func TestAwaitContextDone(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	f := Go(context.Background(), func(context.Context) (int, error) {
		<-block
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErasePending(t *testing.T) {
	release := make(chan struct{})
	f := Go(context.Background(), func(context.Context) (string, error) {
		<-release
		return "later", nil
	})

	erased := erase(f)
	close(release)

	v, err := erased.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "later", v)
}
