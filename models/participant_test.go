package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParticipantAddEntity(t *testing.T) {
	p := Participant{
		ID: 1,
	}

	p.addEntity(1)
	p.addEntity(1)
	require.Len(t, p.entityIDs, 1)
}

func TestParticipantRemoveEntity(t *testing.T) {
	p := Participant{
		ID: 1,
	}

	p.removeEntity(1)
	require.Empty(t, p.entityIDs)

	p.addEntity(1)
	p.addEntity(2)
	p.removeEntity(1)
	require.Len(t, p.entityIDs, 1)
	require.Contains(t, p.entityIDs, uint32(2))
}
