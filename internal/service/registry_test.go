package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/model"
)

func TestRegistryPlaybackLifecycle(t *testing.T) {
	r := NewSessionRegistry()

	_, ok := r.Playback("room-1")
	assert.False(t, ok)

	r.Apply("room-1", func(state *RoomState) {
		state.Playback = &PlaybackState{Action: model.PlaybackPlay, TrackID: "t1"}
	})
	pb, ok := r.Playback("room-1")
	require.True(t, ok)
	assert.Equal(t, "t1", pb.TrackID)

	// Wholesale replacement, not a merge.
	r.Apply("room-1", func(state *RoomState) {
		state.Playback = &PlaybackState{Action: model.PlaybackPause, Time: 12}
	})
	pb, _ = r.Playback("room-1")
	assert.Equal(t, model.PlaybackPause, pb.Action)
	assert.Empty(t, pb.TrackID)

	r.ClearPlayback("room-1")
	_, ok = r.Playback("room-1")
	assert.False(t, ok)
}

func TestRegistryRoomsAreIndependent(t *testing.T) {
	r := NewSessionRegistry()
	r.Apply("room-1", func(state *RoomState) {
		state.Playback = &PlaybackState{Action: model.PlaybackPlay, TrackID: "a"}
	})
	r.Apply("room-2", func(state *RoomState) {
		state.Playback = &PlaybackState{Action: model.PlaybackPlay, TrackID: "b"}
	})

	r.ClearPlayback("room-1")

	_, ok := r.Playback("room-1")
	assert.False(t, ok)
	pb, ok := r.Playback("room-2")
	require.True(t, ok)
	assert.Equal(t, "b", pb.TrackID)
}

func TestRegistryDropRoom(t *testing.T) {
	r := NewSessionRegistry()
	r.Apply("room-1", func(state *RoomState) {
		state.Playback = &PlaybackState{Action: model.PlaybackPlay}
	})
	r.DropRoom("room-1")
	_, ok := r.Playback("room-1")
	assert.False(t, ok)

	// Clearing an unknown room is a no-op.
	r.ClearPlayback("room-1")
	r.DropRoom("room-1")
}

func TestRegistryConcurrentApply(t *testing.T) {
	r := NewSessionRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Apply("room-1", func(state *RoomState) {
				if state.Playback == nil {
					state.Playback = &PlaybackState{Action: model.PlaybackPlay}
				}
				state.Playback.Time++
			})
		}()
	}
	wg.Wait()
	pb, ok := r.Playback("room-1")
	require.True(t, ok)
	assert.Equal(t, 50.0, pb.Time)
}
