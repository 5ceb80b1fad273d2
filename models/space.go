package models

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/spatial/geometry"
	"github.com/aukilabs/spatial/spatial"
	"github.com/google/uuid"
)

const (
	ErrTypeSpaceNotFound  = "space_not_found"
	ErrTypeSpaceExists    = "space_exists"
	ErrTypeOutOfBounds    = "out_of_bounds"
	ErrTypeEntityNotFound = "entity_not_found"
	ErrTypeUnauthorized   = "unauthorized"
)

// Space is a named octree of entities shared by the participants who joined
// it. It is safe for concurrent use.
type Space struct {
	Name      string
	SpaceUUID string

	mutex     sync.RWMutex
	tree      *spatial.OctTree[uint32, float64]
	entityIDs SequentialIDGenerator
	owners    map[uint32]uint32

	participantIDs   SequentialIDGenerator
	participantMutex sync.RWMutex
	participants     map[uint32]*Participant
}

// NewSpace creates an empty space backed by an octree built from config.
func NewSpace(name string, config spatial.OctTreeConfig[float64]) (*Space, error) {
	tree, err := spatial.NewOctTree[uint32](config)
	if err != nil {
		return nil, errors.New("creating space octree failed").
			WithType(errors.Type(err)).
			WithTag("space", name).
			Wrap(err)
	}

	return &Space{
		Name:         name,
		SpaceUUID:    uuid.NewString(),
		tree:         tree,
		owners:       make(map[uint32]uint32),
		participants: make(map[uint32]*Participant),
	}, nil
}

// Config returns the configuration of the space octree.
func (s *Space) Config() spatial.OctTreeConfig[float64] {
	return s.tree.Config()
}

// AddEntity stores a new entity occupying volume. The entity is owned by p
// when p is not nil.
func (s *Space) AddEntity(p *Participant, volume geometry.Volume[float64]) (Entity, error) {
	defer instrumentOperation(s.Name, "add_entity", time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := s.entityIDs.New()
	if !s.tree.Insert(id, volume) {
		s.entityIDs.Reuse(id)
		return Entity{}, s.outOfBounds(volume)
	}

	e := Entity{ID: id, Volume: volume}
	if p != nil {
		e.ParticipantID = p.ID
		s.owners[id] = p.ID
		p.addEntity(id)
	}

	instrumentEntityGauge(s.Name, s.tree.Size())
	return e, nil
}

// MoveEntity changes the volume occupied by an entity. When p is not nil, the
// entity must have been added by p or an error of type ErrTypeUnauthorized
// is returned.
func (s *Space) MoveEntity(p *Participant, id uint32, volume geometry.Volume[float64]) (Entity, error) {
	defer instrumentOperation(s.Name, "move_entity", time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.tree.Contains(id) {
		return Entity{}, s.entityNotFound(id)
	}
	if err := s.checkOwner(p, id); err != nil {
		return Entity{}, err
	}
	if !s.tree.Insert(id, volume) {
		return Entity{}, s.outOfBounds(volume)
	}

	return Entity{
		ID:            id,
		ParticipantID: s.owners[id],
		Volume:        volume,
	}, nil
}

// RemoveEntity removes an entity from the space and returns it. When p is
// not nil, the entity must have been added by p or an error of type
// ErrTypeUnauthorized is returned.
func (s *Space) RemoveEntity(p *Participant, id uint32) (Entity, error) {
	defer instrumentOperation(s.Name, "remove_entity", time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	volume, err := s.tree.VolumeFor(id)
	if err != nil {
		return Entity{}, s.entityNotFound(id)
	}
	if err := s.checkOwner(p, id); err != nil {
		return Entity{}, err
	}

	e := Entity{
		ID:            id,
		ParticipantID: s.owners[id],
		Volume:        volume,
	}
	s.removeEntity(id)
	return e, nil
}

// checkOwner must be called with s.mutex held.
func (s *Space) checkOwner(p *Participant, id uint32) error {
	if p == nil {
		return nil
	}
	if owner, ok := s.owners[id]; ok && owner == p.ID {
		return nil
	}
	return errors.New("entity is not owned by the participant").
		WithType(ErrTypeUnauthorized).
		WithTag("space", s.Name).
		WithTag("entity_id", id).
		WithTag("participant_id", p.ID)
}

func (s *Space) removeEntity(id uint32) bool {
	if !s.tree.Remove(id) {
		return false
	}

	if owner, ok := s.owners[id]; ok {
		delete(s.owners, id)
		if p, ok := s.participantByID(owner); ok {
			p.removeEntity(id)
		}
	}

	s.entityIDs.Reuse(id)
	instrumentEntityGauge(s.Name, s.tree.Size())
	return true
}

// EntityByID returns the entity with the given id.
func (s *Space) EntityByID(id uint32) (Entity, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	volume, err := s.tree.VolumeFor(id)
	if err != nil {
		return Entity{}, errors.New("entity not found").
			WithType(ErrTypeEntityNotFound).
			WithTag("space", s.Name).
			WithTag("entity_id", id).
			Wrap(err)
	}

	return Entity{
		ID:            id,
		ParticipantID: s.owners[id],
		Volume:        volume,
	}, nil
}

// Entities returns all the entities of the space, ordered by id.
func (s *Space) Entities() []Entity {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.entities()
}

func (s *Space) entities() []Entity {
	entities := make([]Entity, 0, s.tree.Size())
	s.tree.Iterate(func(n *spatial.Node[uint32, geometry.Volume[float64]], depth int) spatial.TraversalControl {
		for id, volume := range n.Items() {
			entities = append(entities, Entity{
				ID:            id,
				ParticipantID: s.owners[id],
				Volume:        volume,
			})
		}
		return spatial.TraversalContinue
	})

	sortEntities(entities)
	return entities
}

// EntityCount returns the number of entities in the space.
func (s *Space) EntityCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.tree.Size()
}

// ContainedBy returns the entities lying within volume, ordered by id.
func (s *Space) ContainedBy(volume geometry.Volume[float64]) []Entity {
	defer instrumentOperation(s.Name, "contained_by", time.Now())

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids := make(map[uint32]struct{})
	s.tree.ContainedBy(volume, ids)
	return s.entitiesByIDs(ids)
}

// OverlappedBy returns the entities overlapping volume, ordered by id.
func (s *Space) OverlappedBy(volume geometry.Volume[float64]) []Entity {
	defer instrumentOperation(s.Name, "overlapped_by", time.Now())

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids := make(map[uint32]struct{})
	s.tree.OverlappedBy(volume, ids)
	return s.entitiesByIDs(ids)
}

func (s *Space) entitiesByIDs(ids map[uint32]struct{}) []Entity {
	entities := make([]Entity, 0, len(ids))
	for id := range ids {
		volume, err := s.tree.VolumeFor(id)
		if err != nil {
			continue
		}

		entities = append(entities, Entity{
			ID:            id,
			ParticipantID: s.owners[id],
			Volume:        volume,
		})
	}

	sortEntities(entities)
	return entities
}

// Raycast returns the entities hit by ray, nearest first. A positive limit
// caps the number of hits.
func (s *Space) Raycast(ray geometry.Ray3, limit int) []RaycastHit {
	defer instrumentOperation(s.Name, "raycast", time.Now())

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	results := spatial.NewRaycastResults[uint32, geometry.Volume[float64]]()
	s.tree.Raycast(ray, results)

	hits := hitsFromResults(results, s.owners)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Trim collapses the octants left without entities.
func (s *Space) Trim() spatial.Stats {
	defer instrumentOperation(s.Name, "trim", time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tree.Trim()
	return s.tree.Stats()
}

// Clear removes every entity from the space and returns them, ordered by id.
func (s *Space) Clear() []Entity {
	defer instrumentOperation(s.Name, "clear", time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := s.entities()
	s.tree.Clear()
	s.entityIDs.Reset()
	clear(s.owners)

	s.participantMutex.RLock()
	for _, p := range s.participants {
		clear(p.entityIDs)
	}
	s.participantMutex.RUnlock()

	instrumentEntityGauge(s.Name, 0)
	return removed
}

// SpaceStats describes a space and the shape of its octree.
type SpaceStats struct {
	Name         string                   `json:"name"`
	UUID         string                   `json:"uuid"`
	Bounds       geometry.Volume[float64] `json:"bounds"`
	Entities     int                      `json:"entities"`
	Participants int                      `json:"participants"`
	TrimOnRemove bool                     `json:"trim_on_remove"`
	Tree         spatial.Stats            `json:"tree"`
}

// Stats returns a description of the space.
func (s *Space) Stats() SpaceStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return SpaceStats{
		Name:         s.Name,
		UUID:         s.SpaceUUID,
		Bounds:       s.tree.Bounds(),
		Entities:     s.tree.Size(),
		Participants: s.ParticipantCount(),
		TrimOnRemove: s.tree.Config().TrimOnRemove,
		Tree:         s.tree.Stats(),
	}
}

func (s *Space) NewParticipantID() uint32 {
	return s.participantIDs.New()
}

func (s *Space) AddParticipant(p *Participant) {
	s.participantMutex.Lock()
	defer s.participantMutex.Unlock()

	s.participants[p.ID] = p
}

// RemoveParticipant removes p from the space along with the entities it
// added, and returns the ids of these entities.
func (s *Space) RemoveParticipant(p *Participant) []uint32 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ids := make([]uint32, 0, len(p.entityIDs))
	for id := range p.entityIDs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		s.removeEntity(id)
	}

	s.participantMutex.Lock()
	delete(s.participants, p.ID)
	s.participantMutex.Unlock()

	s.participantIDs.Reuse(p.ID)
	return ids
}

func (s *Space) participantByID(id uint32) (*Participant, bool) {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	p, ok := s.participants[id]
	return p, ok
}

func (s *Space) Participants() []*Participant {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	participants := make([]*Participant, 0, len(s.participants))
	for _, p := range s.participants {
		participants = append(participants, p)
	}
	return participants
}

func (s *Space) ParticipantCount() int {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	return len(s.participants)
}

// Broadcast sends msg to every participant but the sender.
func (s *Space) Broadcast(sender *Participant, msg any) {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	for _, p := range s.participants {
		if p == sender {
			continue
		}
		p.Responder.Send(msg)
	}
}

func (s *Space) outOfBounds(volume geometry.Volume[float64]) error {
	return errors.New("volume is out of the space bounds").
		WithType(ErrTypeOutOfBounds).
		WithTag("space", s.Name).
		WithTag("volume", volume.String()).
		WithTag("bounds", s.tree.Bounds().String())
}

func (s *Space) entityNotFound(id uint32) error {
	return errors.New("entity not found").
		WithType(ErrTypeEntityNotFound).
		WithTag("space", s.Name).
		WithTag("entity_id", id)
}

func (s *Space) String() string {
	return fmt.Sprintf("Space{name=%s, uuid=%s}", s.Name, s.SpaceUUID)
}

// SpaceStore holds the spaces served by the process.
type SpaceStore struct {
	initOnce sync.Once
	mutex    sync.RWMutex
	spaces   map[string]*Space
}

func (s *SpaceStore) init() {
	s.spaces = map[string]*Space{}
}

// Add registers a space. It returns an error of type ErrTypeSpaceExists when
// a space with the same name is already registered.
func (s *SpaceStore) Add(ctx context.Context, space *Space) error {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.spaces[space.Name]; ok {
		return errors.New("space already exists").
			WithType(ErrTypeSpaceExists).
			WithTag("space", space.Name)
	}
	s.spaces[space.Name] = space

	instrumentIncreaseSpaceGauge()
	instrumentCountSpace()
	return nil
}

// Remove unregisters the space with the given name.
func (s *SpaceStore) Remove(ctx context.Context, name string) error {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.spaces[name]; !ok {
		return spaceNotFound(name)
	}
	delete(s.spaces, name)

	instrumentDecreaseSpaceGauge()
	instrumentDeleteEntityGauge(name)
	return nil
}

// Get returns the space with the given name. It returns an error of type
// ErrTypeSpaceNotFound when there is none.
func (s *SpaceStore) Get(name string) (*Space, error) {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	space, ok := s.spaces[name]
	if !ok {
		return nil, spaceNotFound(name)
	}
	return space, nil
}

// Names returns the names of the registered spaces, sorted.
func (s *SpaceStore) Names() []string {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	names := make([]string, 0, len(s.spaces))
	for name := range s.spaces {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func spaceNotFound(name string) error {
	return errors.New("space not found").
		WithType(ErrTypeSpaceNotFound).
		WithTag("space", name)
}
