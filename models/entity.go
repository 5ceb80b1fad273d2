package models

import (
	"cmp"
	"slices"

	"github.com/aukilabs/spatial/geometry"
	"github.com/aukilabs/spatial/spatial"
)

// Entity is an item stored in a space, with the volume it occupies.
type Entity struct {
	ID            uint32                   `json:"id"`
	ParticipantID uint32                   `json:"participant_id,omitempty"`
	Volume        geometry.Volume[float64] `json:"volume"`
}

// RaycastHit is an entity hit by a ray.
type RaycastHit struct {
	Entity
	Distance float64 `json:"distance"`
}

func sortEntities(entities []Entity) {
	slices.SortFunc(entities, func(a, b Entity) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

func hitsFromResults(results *spatial.RaycastResults[uint32, geometry.Volume[float64]], owners map[uint32]uint32) []RaycastHit {
	hits := make([]RaycastHit, 0, results.Len())
	results.Ascend(func(res spatial.RaycastResult[uint32, geometry.Volume[float64]]) bool {
		hits = append(hits, RaycastHit{
			Entity: Entity{
				ID:            res.Item,
				ParticipantID: owners[res.Item],
				Volume:        res.Region,
			},
			Distance: res.Distance,
		})
		return true
	})
	return hits
}
