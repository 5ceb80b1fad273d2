package websocket

import (
	"time"

	"github.com/aukilabs/spatial/featureflag"
	"github.com/aukilabs/spatial/models"
)

var entityBroadcastFlags = map[MsgType]featureflag.Flag{
	MsgTypeEntityAddBroadcast:    featureflag.FlagDisableEntityAddBroadcast,
	MsgTypeEntityMoveBroadcast:   featureflag.FlagDisableEntityMoveBroadcast,
	MsgTypeEntityRemoveBroadcast: featureflag.FlagDisableEntityRemoveBroadcast,
}

// SpaceNotifier relays the entity changes made outside of a realtime
// connection, such as through the HTTP API, to the participants of a space.
type SpaceNotifier struct {
	FeatureFlags featureflag.FeatureFlag
}

func (n SpaceNotifier) NotifyEntityAdd(space *models.Space, e models.Entity) {
	broadcastEntity(n.FeatureFlags, space, nil, MsgTypeEntityAddBroadcast, time.Now(), e)
}

func (n SpaceNotifier) NotifyEntityMove(space *models.Space, e models.Entity) {
	broadcastEntity(n.FeatureFlags, space, nil, MsgTypeEntityMoveBroadcast, time.Now(), e)
}

func (n SpaceNotifier) NotifyEntityRemove(space *models.Space, e models.Entity) {
	broadcastEntity(n.FeatureFlags, space, nil, MsgTypeEntityRemoveBroadcast, time.Now(), e)
}

// broadcastEntity sends an entity broadcast to every participant of space
// but sender, unless the feature flag matching msgType is set.
func broadcastEntity(flags featureflag.FeatureFlag, space *models.Space, sender *models.Participant, msgType MsgType, origin time.Time, e models.Entity) {
	flags.IfNotSet(entityBroadcastFlags[msgType], func() {
		space.Broadcast(sender, EntityBroadcast{
			Type:            msgType,
			Timestamp:       time.Now(),
			OriginTimestamp: origin,
			Entity:          e,
		})
	})
}
