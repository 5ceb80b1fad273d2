package models

import (
	"context"
	"sync"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/spatial/geometry"
	"github.com/aukilabs/spatial/spatial"
	"github.com/stretchr/testify/require"
)

func newTestSpace(t *testing.T, name string) *Space {
	space, err := NewSpace(name, spatial.OctTreeConfig[float64]{
		Bounds:       geometry.VolumeOf(0.0, 100, 0, 100, 0, 100),
		TrimOnRemove: true,
	})
	require.NoError(t, err)
	return space
}

type recordingResponder struct {
	mutex sync.Mutex
	msgs  []any
}

func (r *recordingResponder) Send(msg any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.msgs = append(r.msgs, msg)
}

func TestNewSpace(t *testing.T) {
	space := newTestSpace(t, "lobby")
	require.Equal(t, "lobby", space.Name)
	require.NotEmpty(t, space.SpaceUUID)
	require.True(t, space.Config().TrimOnRemove)
	require.Zero(t, space.EntityCount())

	_, err := NewSpace("broken", spatial.OctTreeConfig[float64]{})
	require.Error(t, err)
	require.Equal(t, spatial.ErrTypeInvalidConfiguration, errors.Type(err))
}

func TestSpaceAddEntity(t *testing.T) {
	space := newTestSpace(t, "lobby")

	e, err := space.AddEntity(nil, geometry.VolumeOf(10.0, 20, 10, 20, 10, 20))
	require.NoError(t, err)
	require.Equal(t, uint32(1), e.ID)
	require.Zero(t, e.ParticipantID)

	t.Run("out of bounds", func(t *testing.T) {
		_, err := space.AddEntity(nil, geometry.VolumeOf(-10.0, 20, 10, 20, 10, 20))
		require.Error(t, err)
		require.Equal(t, ErrTypeOutOfBounds, errors.Type(err))
		require.Equal(t, 1, space.EntityCount())
	})

	t.Run("ids are not lost on failure", func(t *testing.T) {
		e, err := space.AddEntity(nil, geometry.VolumeOf(30.0, 40, 30, 40, 30, 40))
		require.NoError(t, err)
		require.Equal(t, uint32(2), e.ID)
	})

	t.Run("owned by participant", func(t *testing.T) {
		p := &Participant{ID: space.NewParticipantID()}
		space.AddParticipant(p)

		e, err := space.AddEntity(p, geometry.VolumeOf(50.0, 60, 50, 60, 50, 60))
		require.NoError(t, err)
		require.Equal(t, p.ID, e.ParticipantID)

		rEntity, err := space.EntityByID(e.ID)
		require.NoError(t, err)
		require.Equal(t, e, rEntity)
	})
}

func TestSpaceMoveEntity(t *testing.T) {
	space := newTestSpace(t, "lobby")

	e, err := space.AddEntity(nil, geometry.VolumeOf(10.0, 20, 10, 20, 10, 20))
	require.NoError(t, err)

	moved, err := space.MoveEntity(nil, e.ID, geometry.VolumeOf(70.0, 80, 70, 80, 70, 80))
	require.NoError(t, err)
	require.Equal(t, geometry.VolumeOf(70.0, 80, 70, 80, 70, 80), moved.Volume)

	_, err = space.MoveEntity(nil, e.ID, geometry.VolumeOf(70.0, 180, 70, 80, 70, 80))
	require.Equal(t, ErrTypeOutOfBounds, errors.Type(err))

	_, err = space.MoveEntity(nil, 42, geometry.VolumeOf(70.0, 80, 70, 80, 70, 80))
	require.Equal(t, ErrTypeEntityNotFound, errors.Type(err))

	rEntity, err := space.EntityByID(e.ID)
	require.NoError(t, err)
	require.Equal(t, moved, rEntity)
}

func TestSpaceRemoveEntity(t *testing.T) {
	space := newTestSpace(t, "lobby")

	e, err := space.AddEntity(nil, geometry.VolumeOf(10.0, 20, 10, 20, 10, 20))
	require.NoError(t, err)

	removed, err := space.RemoveEntity(nil, e.ID)
	require.NoError(t, err)
	require.Equal(t, e, removed)
	require.Zero(t, space.EntityCount())
	require.Equal(t, 1, space.Stats().Tree.Nodes)

	_, err = space.RemoveEntity(nil, e.ID)
	require.Error(t, err)
	require.Equal(t, ErrTypeEntityNotFound, errors.Type(err))

	_, err = space.EntityByID(e.ID)
	require.Equal(t, ErrTypeEntityNotFound, errors.Type(err))
}

func TestSpaceEntityOwnership(t *testing.T) {
	space := newTestSpace(t, "lobby")

	a := &Participant{ID: space.NewParticipantID()}
	space.AddParticipant(a)
	b := &Participant{ID: space.NewParticipantID()}
	space.AddParticipant(b)

	volume := geometry.VolumeOf(10.0, 20, 10, 20, 10, 20)
	moved := geometry.VolumeOf(30.0, 40, 30, 40, 30, 40)

	owned, err := space.AddEntity(a, volume)
	require.NoError(t, err)
	unowned, err := space.AddEntity(nil, volume)
	require.NoError(t, err)

	t.Run("move by another participant", func(t *testing.T) {
		_, err := space.MoveEntity(b, owned.ID, moved)
		require.Error(t, err)
		require.Equal(t, ErrTypeUnauthorized, errors.Type(err))

		e, err := space.EntityByID(owned.ID)
		require.NoError(t, err)
		require.Equal(t, volume, e.Volume)
	})

	t.Run("remove by another participant", func(t *testing.T) {
		_, err := space.RemoveEntity(b, owned.ID)
		require.Error(t, err)
		require.Equal(t, ErrTypeUnauthorized, errors.Type(err))
		require.Equal(t, 2, space.EntityCount())
	})

	t.Run("participant cannot change unowned entity", func(t *testing.T) {
		_, err := space.MoveEntity(a, unowned.ID, moved)
		require.Equal(t, ErrTypeUnauthorized, errors.Type(err))

		_, err = space.RemoveEntity(a, unowned.ID)
		require.Equal(t, ErrTypeUnauthorized, errors.Type(err))
	})

	t.Run("owner moves and removes", func(t *testing.T) {
		e, err := space.MoveEntity(a, owned.ID, moved)
		require.NoError(t, err)
		require.Equal(t, moved, e.Volume)

		e, err = space.RemoveEntity(a, owned.ID)
		require.NoError(t, err)
		require.Equal(t, a.ID, e.ParticipantID)
	})
}

func TestSpaceRemoveEntityWithReusedID(t *testing.T) {
	space := newTestSpace(t, "lobby")

	a := &Participant{ID: space.NewParticipantID()}
	space.AddParticipant(a)
	b := &Participant{ID: space.NewParticipantID()}
	space.AddParticipant(b)

	e, err := space.AddEntity(a, geometry.VolumeOf(10.0, 20, 10, 20, 10, 20))
	require.NoError(t, err)

	// The entity is removed without an owner and its id goes to b before a
	// gets to remove it.
	_, err = space.RemoveEntity(nil, e.ID)
	require.NoError(t, err)

	reused, err := space.AddEntity(b, geometry.VolumeOf(30.0, 40, 30, 40, 30, 40))
	require.NoError(t, err)
	require.Equal(t, e.ID, reused.ID)

	_, err = space.RemoveEntity(a, e.ID)
	require.Error(t, err)
	require.Equal(t, ErrTypeUnauthorized, errors.Type(err))

	_, err = space.MoveEntity(a, e.ID, geometry.VolumeOf(50.0, 60, 50, 60, 50, 60))
	require.Equal(t, ErrTypeUnauthorized, errors.Type(err))

	current, err := space.EntityByID(reused.ID)
	require.NoError(t, err)
	require.Equal(t, reused, current)
}

func TestSpaceQueries(t *testing.T) {
	space := newTestSpace(t, "lobby")

	regions := []geometry.Volume[float64]{
		geometry.VolumeOf(10.0, 20, 11, 21, 0, 99),
		geometry.VolumeOf(15.0, 25, 16, 26, 0, 99),
		geometry.VolumeOf(25.0, 35, 26, 36, 0, 99),
	}
	for _, r := range regions {
		_, err := space.AddEntity(nil, r)
		require.NoError(t, err)
	}

	entities := space.Entities()
	require.Len(t, entities, 3)
	for i, e := range entities {
		require.Equal(t, uint32(i+1), e.ID)
		require.Equal(t, regions[i], e.Volume)
	}

	contained := space.ContainedBy(geometry.VolumeOf(0.0, 30, 0, 30, 0, 100))
	require.Len(t, contained, 2)
	require.Equal(t, uint32(1), contained[0].ID)
	require.Equal(t, uint32(2), contained[1].ID)

	overlapped := space.OverlappedBy(geometry.VolumeOf(24.0, 27, 24, 27, 50, 51))
	require.Len(t, overlapped, 2)
	require.Equal(t, uint32(2), overlapped[0].ID)
	require.Equal(t, uint32(3), overlapped[1].ID)

	ray, err := geometry.NewRay3(geometry.Vector3{X: 0, Y: 0, Z: 1}, geometry.Vector3{X: 1, Y: 1})
	require.NoError(t, err)

	hits := space.Raycast(ray, 0)
	require.Len(t, hits, 3)
	for i, hit := range hits {
		require.Equal(t, uint32(i+1), hit.ID)
		require.Equal(t, regions[i], hit.Volume)
	}

	hits = space.Raycast(ray, 2)
	require.Len(t, hits, 2)
}

func TestSpaceParticipants(t *testing.T) {
	space := newTestSpace(t, "lobby")

	responderA := &recordingResponder{}
	a := &Participant{ID: space.NewParticipantID(), Responder: responderA}
	space.AddParticipant(a)

	responderB := &recordingResponder{}
	b := &Participant{ID: space.NewParticipantID(), Responder: responderB}
	space.AddParticipant(b)
	require.Equal(t, 2, space.ParticipantCount())
	require.Len(t, space.Participants(), 2)

	space.Broadcast(a, "hello")
	require.Empty(t, responderA.msgs)
	require.Equal(t, []any{"hello"}, responderB.msgs)

	_, err := space.AddEntity(a, geometry.VolumeOf(10.0, 20, 10, 20, 10, 20))
	require.NoError(t, err)
	_, err = space.AddEntity(b, geometry.VolumeOf(30.0, 40, 30, 40, 30, 40))
	require.NoError(t, err)
	_, err = space.AddEntity(a, geometry.VolumeOf(50.0, 60, 50, 60, 50, 60))
	require.NoError(t, err)

	removed := space.RemoveParticipant(a)
	require.Equal(t, []uint32{1, 3}, removed)
	require.Equal(t, 1, space.ParticipantCount())
	require.Equal(t, 1, space.EntityCount())

	entities := space.Entities()
	require.Equal(t, b.ID, entities[0].ParticipantID)
}

func TestSpaceClearAndTrim(t *testing.T) {
	space, err := NewSpace("lobby", spatial.OctTreeConfig[float64]{
		Bounds: geometry.VolumeOf(0.0, 100, 0, 100, 0, 100),
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		v := float64(i * 10)
		_, err := space.AddEntity(nil, geometry.VolumeOf(v, v+1, v, v+1, v, v+1))
		require.NoError(t, err)
	}

	for i := uint32(1); i <= 9; i++ {
		_, err := space.RemoveEntity(nil, i)
		require.NoError(t, err)
	}
	before := space.Stats().Tree.Nodes
	require.Greater(t, before, 1)

	stats := space.Trim()
	require.Equal(t, 1, stats.Items)
	require.Less(t, stats.Nodes, before)

	removed := space.Clear()
	require.Len(t, removed, 1)
	require.Equal(t, uint32(10), removed[0].ID)
	require.Zero(t, space.EntityCount())
	require.Equal(t, 1, space.Stats().Tree.Nodes)

	e, err := space.AddEntity(nil, geometry.VolumeOf(1.0, 2, 1, 2, 1, 2))
	require.NoError(t, err)
	require.Equal(t, uint32(1), e.ID)
}

func TestSpaceStore(t *testing.T) {
	var store SpaceStore
	ctx := context.Background()

	_, err := store.Get("lobby")
	require.Error(t, err)
	require.Equal(t, ErrTypeSpaceNotFound, errors.Type(err))

	require.NoError(t, store.Add(ctx, newTestSpace(t, "lobby")))
	require.NoError(t, store.Add(ctx, newTestSpace(t, "arena")))

	err = store.Add(ctx, newTestSpace(t, "lobby"))
	require.Error(t, err)
	require.Equal(t, ErrTypeSpaceExists, errors.Type(err))

	space, err := store.Get("lobby")
	require.NoError(t, err)
	require.Equal(t, "lobby", space.Name)
	require.Equal(t, []string{"arena", "lobby"}, store.Names())

	require.NoError(t, store.Remove(ctx, "lobby"))
	require.Equal(t, ErrTypeSpaceNotFound, errors.Type(store.Remove(ctx, "lobby")))
	require.Equal(t, []string{"arena"}, store.Names())
}
