package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/spatial/featureflag"
	"github.com/aukilabs/spatial/geometry"
	"github.com/aukilabs/spatial/models"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

// HeaderClientID is the HTTP header a client uses to identify itself.
const HeaderClientID = "X-Spatial-Client-Id"

// RealtimeHandler represents a service that manages a client connection to a
// space and relays the changes made to its entities in realtime.
type RealtimeHandler struct {
	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The store that contains all the spaces.
	Spaces *models.SpaceStore

	FeatureFlags featureflag.FeatureFlag

	conn               *websocket.Conn
	currentSpace       *models.Space
	currentParticipant *models.Participant

	clientID string
}

func (h *RealtimeHandler) HandleConnect(conn *websocket.Conn) {
	h.clientID = conn.Request().Header.Get(HeaderClientID)
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}

	h.conn = conn
}

func (h *RealtimeHandler) HandleDisconnect(_ error) {
	if h.currentParticipant != nil {
		h.leaveSpace()
	}
}

func (h *RealtimeHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req Request
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	respond.Send(Response{
		Type:      MsgTypePingResponse,
		Timestamp: time.Now(),
		RequestID: req.RequestID,
	})
	return nil
}

func (h *RealtimeHandler) HandleSpaceJoin(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req SpaceJoinRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if h.currentSpace != nil && h.currentSpace.Name == req.Space {
		sendError(respond, req.RequestID, ErrorCodeSpaceAlreadyJoined, nil)
		return nil
	}

	space, err := h.Spaces.Get(req.Space)
	if err != nil {
		sendError(respond, req.RequestID, ErrorCodeNotFound, err)
		return nil
	}

	if h.currentParticipant != nil {
		h.leaveSpace()
	}

	participant := &models.Participant{
		ID:        space.NewParticipantID(),
		Responder: respond,
	}
	space.AddParticipant(participant)

	h.currentSpace = space
	h.currentParticipant = participant

	respond.Send(SpaceJoinResponse{
		Type:          MsgTypeSpaceJoinResponse,
		Timestamp:     time.Now(),
		RequestID:     req.RequestID,
		Space:         space.Name,
		SpaceUUID:     space.SpaceUUID,
		ParticipantID: participant.ID,
		Bounds:        space.Config().Bounds,
		Entities:      space.Entities(),
	})

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableParticipantJoinBroadcast, func() {
		space.Broadcast(participant, ParticipantBroadcast{
			Type:            MsgTypeParticipantJoinBroadcast,
			Timestamp:       time.Now(),
			OriginTimestamp: req.Timestamp,
			ParticipantID:   participant.ID,
		})
	})

	return nil
}

func (h *RealtimeHandler) HandleSpaceLeave(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req Request
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if h.currentParticipant == nil {
		return h.errSpaceNotJoined(msg)
	}
	h.leaveSpace()

	respond.Send(Response{
		Type:      MsgTypeSpaceLeaveResponse,
		Timestamp: time.Now(),
		RequestID: req.RequestID,
	})
	return nil
}

func (h *RealtimeHandler) HandleEntityAdd(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req EntityAddRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	participant := h.currentParticipant
	space := h.currentSpace
	if participant == nil || space == nil {
		return h.errSpaceNotJoined(msg)
	}

	entity, err := space.AddEntity(participant, req.Volume)
	if err != nil {
		sendError(respond, req.RequestID, errorCode(err), err)
		return nil
	}

	respond.Send(EntityResponse{
		Type:      MsgTypeEntityAddResponse,
		Timestamp: time.Now(),
		RequestID: req.RequestID,
		Entity:    entity,
	})

	broadcastEntity(h.FeatureFlags, space, participant, MsgTypeEntityAddBroadcast, req.Timestamp, entity)

	return nil
}

func (h *RealtimeHandler) HandleEntityMove(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req EntityMoveRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	participant := h.currentParticipant
	space := h.currentSpace
	if participant == nil || space == nil {
		return h.errSpaceNotJoined(msg)
	}

	entity, err := space.MoveEntity(participant, req.EntityID, req.Volume)
	if err != nil {
		sendError(respond, req.RequestID, errorCode(err), err)
		return nil
	}

	respond.Send(EntityResponse{
		Type:      MsgTypeEntityMoveResponse,
		Timestamp: time.Now(),
		RequestID: req.RequestID,
		Entity:    entity,
	})

	broadcastEntity(h.FeatureFlags, space, participant, MsgTypeEntityMoveBroadcast, req.Timestamp, entity)

	return nil
}

func (h *RealtimeHandler) HandleEntityRemove(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req EntityRemoveRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	participant := h.currentParticipant
	space := h.currentSpace
	if participant == nil || space == nil {
		return h.errSpaceNotJoined(msg)
	}

	entity, err := space.RemoveEntity(participant, req.EntityID)
	if err != nil {
		sendError(respond, req.RequestID, errorCode(err), err)
		return nil
	}

	respond.Send(EntityResponse{
		Type:      MsgTypeEntityRemoveResponse,
		Timestamp: time.Now(),
		RequestID: req.RequestID,
		Entity:    entity,
	})

	broadcastEntity(h.FeatureFlags, space, participant, MsgTypeEntityRemoveBroadcast, req.Timestamp, entity)

	return nil
}

func (h *RealtimeHandler) HandleQuery(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req QueryRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	space := h.currentSpace
	if space == nil {
		return h.errSpaceNotJoined(msg)
	}

	var entities []models.Entity
	switch req.Mode {
	case QueryModeContained:
		entities = space.ContainedBy(req.Volume)

	case QueryModeOverlapped, "":
		entities = space.OverlappedBy(req.Volume)

	default:
		sendError(respond, req.RequestID, ErrorCodeBadRequest, errors.New("unknown query mode").WithTag("mode", req.Mode))
		return nil
	}

	respond.Send(QueryResponse{
		Type:      MsgTypeQueryResponse,
		Timestamp: time.Now(),
		RequestID: req.RequestID,
		Entities:  entities,
	})
	return nil
}

func (h *RealtimeHandler) HandleRaycast(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req RaycastRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	space := h.currentSpace
	if space == nil {
		return h.errSpaceNotJoined(msg)
	}

	if h.FeatureFlags.IsSet(featureflag.FlagDisableRaycast) {
		sendError(respond, req.RequestID, ErrorCodeDisabled, nil)
		return nil
	}

	ray, err := geometry.NewRay3(req.Origin, req.Direction)
	if err != nil {
		sendError(respond, req.RequestID, ErrorCodeBadRequest, err)
		return nil
	}

	respond.Send(RaycastResponse{
		Type:      MsgTypeRaycastResponse,
		Timestamp: time.Now(),
		RequestID: req.RequestID,
		Hits:      space.Raycast(ray, req.Limit),
	})
	return nil
}

func (h *RealtimeHandler) Receiver() Receiver {
	return func() (Msg, int, error) {
		var data []byte
		if err := websocket.Message.Receive(h.conn, &data); err != nil {
			return Msg{}, 0, err
		}

		msg, err := MsgFromBytes(data)
		return msg, len(data), err
	}
}

func (h *RealtimeHandler) Sender() Sender {
	return func(msg Msg) (int, error) {
		if err := websocket.Message.Send(h.conn, string(msg.Data)); err != nil {
			return 0, err
		}
		return len(msg.Data), nil
	}
}

func (h *RealtimeHandler) Close() {
}

func (h *RealtimeHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *RealtimeHandler) GetSpaces() *models.SpaceStore {
	return h.Spaces
}

func (h *RealtimeHandler) CurrentSpace() *models.Space {
	return h.currentSpace
}

func (h *RealtimeHandler) CurrentParticipant() *models.Participant {
	return h.currentParticipant
}

func (h *RealtimeHandler) GetClientID() string {
	return h.clientID
}

func (h *RealtimeHandler) leaveSpace() {
	space := h.currentSpace
	participant := h.currentParticipant

	if participant == nil || space == nil {
		return
	}

	now := time.Now()
	for _, id := range space.RemoveParticipant(participant) {
		broadcastEntity(h.FeatureFlags, space, participant, MsgTypeEntityRemoveBroadcast, now,
			models.Entity{ID: id, ParticipantID: participant.ID})
	}

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableParticipantLeaveBroadcast, func() {
		space.Broadcast(participant, ParticipantBroadcast{
			Type:            MsgTypeParticipantLeaveBroadcast,
			Timestamp:       now,
			OriginTimestamp: now,
			ParticipantID:   participant.ID,
		})
	})

	h.currentParticipant = nil
	h.currentSpace = nil
}

func (h *RealtimeHandler) errSpaceNotJoined(msg Msg) error {
	return errors.New("space not joined").
		WithType(ErrTypeSpaceNotJoined).
		WithTag("msg_type", msg.Type)
}

func sendError(respond ResponseSender, requestID uint32, code ErrorCode, err error) {
	res := ErrorResponse{
		Type:      MsgTypeErrorResponse,
		Timestamp: time.Now(),
		RequestID: requestID,
		Code:      code,
	}
	if err != nil {
		res.Message = err.Error()
	}
	respond.Send(res)
}

func errorCode(err error) ErrorCode {
	switch errors.Type(err) {
	case models.ErrTypeEntityNotFound, models.ErrTypeSpaceNotFound:
		return ErrorCodeNotFound

	case models.ErrTypeOutOfBounds:
		return ErrorCodeOutOfBounds

	case models.ErrTypeUnauthorized:
		return ErrorCodeUnauthorized

	default:
		return ErrorCodeInternalError
	}
}
