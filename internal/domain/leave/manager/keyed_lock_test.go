// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLockSerializesSameKey(t *testing.T) {
	kl := newKeyedLock()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := kl.Lock(context.Background(), "a")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, kl.size())
}

func TestKeyedLockIndependentKeys(t *testing.T) {
	kl := newKeyedLock()
	unlockA, err := kl.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := kl.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
	assert.Equal(t, 1, kl.size())
}

func TestKeyedLockCancel(t *testing.T) {
	kl := newKeyedLock()
	unlock, err := kl.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = kl.Lock(ctx, "a")
	require.ErrorIs(t, err, context.Canceled)

	unlock()
	unlock() // idempotent
	assert.Zero(t, kl.size())
}

func TestGatePolicyRequires(t *testing.T) {
	assert.True(t, GatePolicy{Mode: GateReviewer}.Requires(true, 1))
	assert.False(t, GatePolicy{Mode: GateReviewer}.Requires(false, 10))
	assert.True(t, GatePolicy{Mode: GateReviewer, MinDays: 5}.Requires(false, 5))
	assert.True(t, GatePolicy{Mode: GateAlways}.Requires(false, 1))
	assert.False(t, GatePolicy{Mode: GateNever, MinDays: 1}.Requires(true, 30))
}
