package lock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalTermLockerSingleWriter(t *testing.T) {
	locker := NewLocalTermLocker()

	release, ok, err := locker.Acquire(context.Background(), "term-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.Acquire(context.Background(), "term-1")
	require.NoError(t, err)
	require.False(t, ok, "second writer must be rejected while lock is held")

	// A different term is independent.
	other, ok, err := locker.Acquire(context.Background(), "term-2")
	require.NoError(t, err)
	require.True(t, ok)
	other()

	release()

	release2, ok, err := locker.Acquire(context.Background(), "term-1")
	require.NoError(t, err)
	require.True(t, ok, "lock must be reacquirable after release")
	release2()
}

func TestLocalTermLockerReleaseIdempotent(t *testing.T) {
	locker := NewLocalTermLocker()

	release, ok, err := locker.Acquire(context.Background(), "term-1")
	require.NoError(t, err)
	require.True(t, ok)

	release()
	release() // double release must not unlock someone else's acquisition

	again, ok, err := locker.Acquire(context.Background(), "term-1")
	require.NoError(t, err)
	require.True(t, ok)
	defer again()

	_, ok, err = locker.Acquire(context.Background(), "term-1")
	require.NoError(t, err)
	require.False(t, ok)
}
