package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/model"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/store"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/store/storetest"
	"go.uber.org/zap"
)

type jamFixture struct {
	store    *storetest.Fake
	registry *SessionRegistry
	hub      *JamHub
	coord    *RoomCoordinator
}

func newJamFixture(t *testing.T) *jamFixture {
	t.Helper()
	st := storetest.New()
	registry := NewSessionRegistry()
	hub := NewJamHub(4096, 4096, 65536, zap.NewNop())
	return &jamFixture{
		store:    st,
		registry: registry,
		hub:      hub,
		coord:    NewRoomCoordinator(st, registry, hub, zap.NewNop()),
	}
}

// createRoom makes a room with its host and returns the room.
func (f *jamFixture) createRoom(t *testing.T, hostID, hostName string) *model.Room {
	t.Helper()
	room, err := f.store.CreateRoom(store.UserRef{ID: hostID, Username: hostName}, "Test Jam", "", 4)
	require.NoError(t, err)
	return room
}

// join reactivates-or-creates the participant row and registers a hub session
// with no underlying conn; events land in the session's Send channel.
func (f *jamFixture) join(t *testing.T, roomID, userID, username string) (*Session, func()) {
	t.Helper()
	p, err := f.store.CreateOrReactivateParticipant(roomID, store.UserRef{ID: userID, Username: username})
	require.NoError(t, err)
	s, cleanup := f.hub.Register(roomID, model.ParticipantViewOf(p), nil)
	return s, cleanup
}

// recv pops the next event from a session's buffer.
func recv(t *testing.T, s *Session) model.Envelope {
	t.Helper()
	select {
	case raw := <-s.Send:
		var env model.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return model.Envelope{}
	}
}

func recvEvent(t *testing.T, s *Session, event string) model.Envelope {
	t.Helper()
	env := recv(t, s)
	require.Equal(t, event, env.Event)
	return env
}

func requireNoEvent(t *testing.T, s *Session) {
	t.Helper()
	select {
	case raw := <-s.Send:
		t.Fatalf("unexpected event: %s", raw)
	default:
	}
}

func send(c *RoomCoordinator, s *Session, event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	raw, _ := json.Marshal(model.Envelope{Event: event, Data: data})
	c.HandleMessage(s, raw)
}

func snapshotOf(t *testing.T, env model.Envelope) model.SnapshotPayload {
	t.Helper()
	var snap model.SnapshotPayload
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	return snap
}

func TestAdmitPushesSnapshotAndNotifiesRoom(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")

	host, hostCleanup := f.join(t, room.ID, "host-1", "alice")
	defer hostCleanup()
	require.NoError(t, f.coord.Admit(host))
	recvEvent(t, host, model.EventRoomState)
	recvEvent(t, host, model.EventParticipantsUpdate)

	p, pCleanup := f.join(t, room.ID, "user-2", "bob")
	defer pCleanup()
	require.NoError(t, f.coord.Admit(p))

	// Newcomer gets room:state, everyone gets the refreshed snapshot.
	state := snapshotOf(t, recvEvent(t, p, model.EventRoomState))
	assert.Len(t, state.Participants, 2)
	hostSnap := snapshotOf(t, recvEvent(t, host, model.EventParticipantsUpdate))
	assert.Len(t, hostSnap.Participants, 2)
	recvEvent(t, p, model.EventParticipantsUpdate)

	// No playback push: nothing is playing yet.
	requireNoEvent(t, p)
}

func TestAdmitPushesCachedPlaybackToNewcomerOnly(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	f.registry.Apply(room.ID, func(state *RoomState) {
		state.Playback = &PlaybackState{Action: model.PlaybackPlay, Time: 42, TrackID: "t1"}
	})

	host, cleanup := f.join(t, room.ID, "host-1", "alice")
	defer cleanup()
	require.NoError(t, f.coord.Admit(host))
	recvEvent(t, host, model.EventRoomState)
	recvEvent(t, host, model.EventParticipantsUpdate)

	env := recvEvent(t, host, model.EventPlaybackControl)
	var pb model.PlaybackControlPayload
	require.NoError(t, json.Unmarshal(env.Data, &pb))
	assert.Equal(t, model.PlaybackPlay, pb.Action)
	assert.Equal(t, 42.0, pb.Time)
	assert.Equal(t, "t1", pb.TrackID)
}

func TestReadyEventBroadcastsSnapshotMatchingStore(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	host, hc := f.join(t, room.ID, "host-1", "alice")
	defer hc()
	p, pc := f.join(t, room.ID, "user-2", "bob")
	defer pc()

	send(f.coord, p, model.EventParticipantReady, model.ParticipantReadyPayload{Ready: true})

	for _, s := range []*Session{host, p} {
		snap := snapshotOf(t, recvEvent(t, s, model.EventParticipantsUpdate))
		require.Len(t, snap.Participants, 2)
		ready := map[string]bool{}
		for _, pv := range snap.Participants {
			ready[pv.UserID] = pv.Ready
		}
		assert.True(t, ready["user-2"])
		assert.False(t, ready["host-1"])
	}

	row, err := f.store.FindParticipant(room.ID, "user-2")
	require.NoError(t, err)
	assert.True(t, row.Ready)
}

func TestInstrumentUpdatePersistsAndBroadcasts(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	host, hc := f.join(t, room.ID, "host-1", "alice")
	defer hc()

	send(f.coord, host, model.EventParticipantUpdate, model.ParticipantUpdatePayload{Instrument: "drums"})

	snap := snapshotOf(t, recvEvent(t, host, model.EventParticipantsUpdate))
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, "drums", snap.Participants[0].Instrument)

	row, err := f.store.FindParticipant(room.ID, "host-1")
	require.NoError(t, err)
	assert.Equal(t, "drums", row.Instrument)
}

func TestNonHostPlaybackRejectedWithoutStateChange(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	host, hc := f.join(t, room.ID, "host-1", "alice")
	defer hc()
	p, pc := f.join(t, room.ID, "user-2", "bob")
	defer pc()

	send(f.coord, p, model.EventPlaybackControl, model.PlaybackControlPayload{
		Action: model.PlaybackPlay, Time: 0, TrackID: "t1",
	})

	env := recvEvent(t, p, model.EventError)
	var errPayload model.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &errPayload))
	assert.Equal(t, "Only the host can control playback", errPayload.Message)

	// No broadcast reached anyone, and the registry is untouched.
	requireNoEvent(t, host)
	requireNoEvent(t, p)
	_, ok := f.registry.Playback(room.ID)
	assert.False(t, ok)
}

func TestHostPlaybackAppliedAndEchoedToEveryone(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	host, hc := f.join(t, room.ID, "host-1", "alice")
	defer hc()
	p, pc := f.join(t, room.ID, "user-2", "bob")
	defer pc()

	send(f.coord, host, model.EventPlaybackControl, model.PlaybackControlPayload{
		Action: model.PlaybackPlay, Time: 0, TrackID: "t1",
	})

	// Sender included in the fan-out.
	for _, s := range []*Session{host, p} {
		env := recvEvent(t, s, model.EventPlaybackControl)
		var pb model.PlaybackControlPayload
		require.NoError(t, json.Unmarshal(env.Data, &pb))
		assert.Equal(t, model.PlaybackPlay, pb.Action)
		assert.Equal(t, "t1", pb.TrackID)
	}

	pb, ok := f.registry.Playback(room.ID)
	require.True(t, ok)
	assert.Equal(t, "t1", pb.TrackID)
}

func TestPlaybackStateIsLastWriterWins(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	host, hc := f.join(t, room.ID, "host-1", "alice")
	defer hc()

	send(f.coord, host, model.EventPlaybackControl, model.PlaybackControlPayload{
		Action: model.PlaybackPlay, Time: 0, TrackID: "t1",
	})
	send(f.coord, host, model.EventPlaybackControl, model.PlaybackControlPayload{
		Action: model.PlaybackSeek, Time: 73.5, TrackID: "t1",
	})

	pb, ok := f.registry.Playback(room.ID)
	require.True(t, ok)
	assert.Equal(t, model.PlaybackSeek, pb.Action)
	assert.Equal(t, 73.5, pb.Time)
}

func TestPlaybackRejectsUnknownAction(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	host, hc := f.join(t, room.ID, "host-1", "alice")
	defer hc()

	send(f.coord, host, model.EventPlaybackControl, model.PlaybackControlPayload{Action: "rewind"})

	recvEvent(t, host, model.EventError)
	_, ok := f.registry.Playback(room.ID)
	assert.False(t, ok)
}

func TestIdentityMismatchRejected(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	host, hc := f.join(t, room.ID, "host-1", "alice")
	defer hc()
	p, pc := f.join(t, room.ID, "user-2", "bob")
	defer pc()

	// bob claims to be the host in the payload; the binding wins.
	send(f.coord, p, model.EventParticipantReady, model.ParticipantReadyPayload{
		UserID: "host-1", Ready: true,
	})

	recvEvent(t, p, model.EventError)
	requireNoEvent(t, host)
	row, err := f.store.FindParticipant(room.ID, "host-1")
	require.NoError(t, err)
	assert.False(t, row.Ready)
}

func TestReactionBroadcastsUsernameAndPersistsNothing(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	host, hc := f.join(t, room.ID, "host-1", "alice")
	defer hc()
	p, pc := f.join(t, room.ID, "user-2", "bob")
	defer pc()

	before, err := f.store.FindActiveParticipants(room.ID)
	require.NoError(t, err)

	send(f.coord, p, model.EventJamReaction, model.ReactionPayload{Type: "applause"})

	for _, s := range []*Session{host, p} {
		env := recvEvent(t, s, model.EventJamReaction)
		var r model.ReactionBroadcast
		require.NoError(t, json.Unmarshal(env.Data, &r))
		assert.Equal(t, "applause", r.Type)
		assert.Equal(t, "bob", r.Username)
	}

	// Nothing about the reaction is visible in the membership store.
	after, err := f.store.FindActiveParticipants(room.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, before, after)
}

func TestHostDisconnectClearsPlaybackAndNotifies(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	host, hostCleanup := f.join(t, room.ID, "host-1", "alice")
	p, pc := f.join(t, room.ID, "user-2", "bob")
	defer pc()

	send(f.coord, host, model.EventPlaybackControl, model.PlaybackControlPayload{
		Action: model.PlaybackPlay, TrackID: "t1",
	})
	recvEvent(t, host, model.EventPlaybackControl)
	recvEvent(t, p, model.EventPlaybackControl)

	hostCleanup()
	f.coord.Disconnect(host)

	snap := snapshotOf(t, recvEvent(t, p, model.EventParticipantsUpdate))
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, "user-2", snap.Participants[0].UserID)

	env := recvEvent(t, p, model.EventParticipantLeft)
	var left model.ParticipantLeftPayload
	require.NoError(t, json.Unmarshal(env.Data, &left))
	assert.Equal(t, "host-1", left.UserID)

	_, ok := f.registry.Playback(room.ID)
	assert.False(t, ok, "host departure must wipe playback state")

	row, err := f.store.FindParticipant(room.ID, "host-1")
	require.NoError(t, err)
	assert.Equal(t, model.ParticipantInactive, row.Status)
	assert.False(t, row.Ready)

	// A later joiner gets no playback push.
	p2, p2c := f.join(t, room.ID, "user-3", "carol")
	defer p2c()
	require.NoError(t, f.coord.Admit(p2))
	recvEvent(t, p2, model.EventRoomState)
	recvEvent(t, p2, model.EventParticipantsUpdate)
	requireNoEvent(t, p2)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	host, hc := f.join(t, room.ID, "host-1", "alice")
	p, pc := f.join(t, room.ID, "user-2", "bob")
	defer pc()

	hc()
	f.coord.Disconnect(host)
	recvEvent(t, p, model.EventParticipantsUpdate)
	recvEvent(t, p, model.EventParticipantLeft)

	f.coord.Disconnect(host)
	requireNoEvent(t, p)
}

func TestPersistenceFailureReportedToSenderOnly(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	host, hc := f.join(t, room.ID, "host-1", "alice")
	defer hc()
	p, pc := f.join(t, room.ID, "user-2", "bob")
	defer pc()

	f.store.FailWrites = true
	send(f.coord, p, model.EventParticipantReady, model.ParticipantReadyPayload{Ready: true})

	recvEvent(t, p, model.EventError)
	requireNoEvent(t, host)
}

func TestPlaybackUnaffectedByStoreWriteHealth(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	host, hc := f.join(t, room.ID, "host-1", "alice")
	defer hc()

	// Playback is ephemeral: a broken store write path must not block it.
	f.store.FailWrites = true
	send(f.coord, host, model.EventPlaybackControl, model.PlaybackControlPayload{
		Action: model.PlaybackPlay, TrackID: "t1",
	})

	recvEvent(t, host, model.EventPlaybackControl)
	_, ok := f.registry.Playback(room.ID)
	assert.True(t, ok)
}

func TestUnknownEventAnswersError(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	host, hc := f.join(t, room.ID, "host-1", "alice")
	defer hc()

	f.coord.HandleMessage(host, []byte(`{"event":"karaoke:start","data":{}}`))
	recvEvent(t, host, model.EventError)

	f.coord.HandleMessage(host, []byte(`not json`))
	recvEvent(t, host, model.EventError)
}

func TestAtMostOneActiveHostPerRoom(t *testing.T) {
	f := newJamFixture(t)
	room := f.createRoom(t, "host-1", "alice")
	_, hc := f.join(t, room.ID, "host-1", "alice")
	defer hc()
	_, pc := f.join(t, room.ID, "user-2", "bob")
	defer pc()
	_, p2c := f.join(t, room.ID, "user-3", "carol")
	defer p2c()

	parts, err := f.store.FindActiveParticipants(room.ID)
	require.NoError(t, err)
	hosts := 0
	for _, p := range parts {
		if p.Role == model.RoleHost && p.Status == model.ParticipantActive {
			hosts++
		}
	}
	assert.Equal(t, 1, hosts)
}
