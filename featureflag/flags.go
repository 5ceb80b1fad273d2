package featureflag

type Flag string

const (
	FlagTrimOnRemove                     Flag = "TRIM_ON_REMOVE"
	FlagDisableRaycast                   Flag = "DISABLE_RAYCAST"
	FlagDisableWebsocket                 Flag = "DISABLE_WEBSOCKET"
	FlagDisableParticipantJoinBroadcast  Flag = "DISABLE_PARTICIPANT_JOIN_BROADCAST"
	FlagDisableParticipantLeaveBroadcast Flag = "DISABLE_PARTICIPANT_LEAVE_BROADCAST"
	FlagDisableEntityAddBroadcast        Flag = "DISABLE_ENTITY_ADD_BROADCAST"
	FlagDisableEntityMoveBroadcast       Flag = "DISABLE_ENTITY_MOVE_BROADCAST"
	FlagDisableEntityRemoveBroadcast     Flag = "DISABLE_ENTITY_REMOVE_BROADCAST"
)
