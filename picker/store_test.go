package picker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/timescope/resolver"
)

func TestLiveStoreSnapshot(t *testing.T) {
	s := NewLiveStore()
	assert.Nil(t, s.Snapshot())

	payload := &resolver.ResolvedPayload{
		Resolved: resolver.ResolvedRange{StartMs: 1, EndMs: 2, ResolvedTz: "UTC"},
	}
	s.SetSnapshot(payload)
	assert.Same(t, payload, s.Snapshot())

	s.SetSnapshot(nil)
	assert.Nil(t, s.Snapshot())
}

func TestLiveStoreNotifiesSynchronously(t *testing.T) {
	s := NewLiveStore()

	var got []*resolver.ResolvedPayload
	unsubscribe := s.Subscribe(func(p *resolver.ResolvedPayload) {
		got = append(got, p)
	})

	payload := &resolver.ResolvedPayload{}
	s.SetSnapshot(payload)
	// Redundant publish with the same value still notifies.
	s.SetSnapshot(payload)
	require.Len(t, got, 2)
	assert.Same(t, payload, got[0])
	assert.Same(t, payload, got[1])

	unsubscribe()
	s.SetSnapshot(nil)
	assert.Len(t, got, 2)
}

func TestLiveStoreListenerMayUnsubscribe(t *testing.T) {
	s := NewLiveStore()

	calls := 0
	var unsubscribe func()
	unsubscribe = s.Subscribe(func(*resolver.ResolvedPayload) {
		calls++
		unsubscribe()
	})

	s.SetSnapshot(&resolver.ResolvedPayload{})
	s.SetSnapshot(&resolver.ResolvedPayload{})
	assert.Equal(t, 1, calls)
}

func TestLiveStoreMultipleListeners(t *testing.T) {
	s := NewLiveStore()

	a, b := 0, 0
	s.Subscribe(func(*resolver.ResolvedPayload) { a++ })
	s.Subscribe(func(*resolver.ResolvedPayload) { b++ })

	s.SetSnapshot(&resolver.ResolvedPayload{})
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}
