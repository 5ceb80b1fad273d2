package models

// Responder sends messages to a client.
type Responder interface {
	Send(msg any)
}

// A space participant.
type Participant struct {
	ID        uint32
	Responder Responder

	entityIDs map[uint32]struct{}
}

func (p *Participant) addEntity(id uint32) {
	if p.entityIDs == nil {
		p.entityIDs = make(map[uint32]struct{})
	}
	p.entityIDs[id] = struct{}{}
}

func (p *Participant) removeEntity(id uint32) {
	delete(p.entityIDs, id)
}
