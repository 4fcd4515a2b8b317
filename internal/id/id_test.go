package id

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUID(t *testing.T) {
	u, err := uuid.Parse(UUID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), u.Version())
	assert.NotEqual(t, UUID(), UUID())
}

func TestRunID_Format(t *testing.T) {
	id := RunID()
	assert.Len(t, id, RunIDLen)
	assert.True(t, IsRunID(id), id)
	assert.NotContainsf(t, id, "U", "alphabet excludes U")
}

func TestRunID_SortsByTime(t *testing.T) {
	base := time.Now().Add(48 * time.Hour).Truncate(time.Millisecond)
	earlier := runID(base)
	later := runID(base.Add(time.Second))
	assert.Less(t, earlier, later)

	at, err := RunTime(later)
	require.NoError(t, err)
	assert.True(t, at.Equal(base.Add(time.Second)), at)
}

func TestRunID_MonotonicWithinMillisecond(t *testing.T) {
	now := time.Now().Add(72 * time.Hour)
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = runID(now)
	}
	assert.True(t, sort.StringsAreSorted(ids))
	for i := 1; i < len(ids); i++ {
		assert.NotEqual(t, ids[i-1], ids[i])
	}
}

func TestRunID_Concurrent(t *testing.T) {
	const n = 200
	var (
		mu   sync.Mutex
		seen = make(map[string]bool, n)
		wg   sync.WaitGroup
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := RunID()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestIncrement(t *testing.T) {
	b := []byte{0x00, 0xff}
	assert.True(t, increment(b))
	assert.Equal(t, []byte{0x01, 0x00}, b)

	b = []byte{0xff, 0xff}
	assert.False(t, increment(b))
	assert.Equal(t, []byte{0x00, 0x00}, b)
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "00000000000000000000000000", encode([16]byte{}))

	var max [16]byte
	for i := range max {
		max[i] = 0xff
	}
	assert.Equal(t, "7ZZZZZZZZZZZZZZZZZZZZZZZZZ", encode(max))
}

func TestIsRunID(t *testing.T) {
	tests := map[string]bool{
		"01ARZ3NDEKTSV4RRFFQ69G5FAV":  true,
		"7ZZZZZZZZZZZZZZZZZZZZZZZZZ":  true,
		"8ZZZZZZZZZZZZZZZZZZZZZZZZZ":  false,
		"01ARZ3NDEKTSV4RRFFQ69G5FA":   false,
		"01ARZ3NDEKTSV4RRFFQ69G5FAVX": false,
		"01ARZ3NDEKTSV4RRFFQ69G5FAI":  false,
		"01arz3ndektsv4rrffq69g5fav":  false,
		"":                            false,
	}
	for in, want := range tests {
		assert.Equal(t, want, IsRunID(in), in)
	}
}

func TestRunTime_Invalid(t *testing.T) {
	_, err := RunTime("nope")
	assert.Error(t, err)
}
