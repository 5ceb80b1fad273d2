package websocket

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/spatial/geometry"
	"github.com/aukilabs/spatial/models"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeMsgDecode      = "msg_decode"
	ErrTypeSpaceNotJoined = "space_not_joined"
)

// MsgType identifies the kind of a message.
type MsgType string

const (
	MsgTypePingRequest  MsgType = "ping_request"
	MsgTypePingResponse MsgType = "ping_response"

	MsgTypeSpaceJoinRequest   MsgType = "space_join_request"
	MsgTypeSpaceJoinResponse  MsgType = "space_join_response"
	MsgTypeSpaceLeaveRequest  MsgType = "space_leave_request"
	MsgTypeSpaceLeaveResponse MsgType = "space_leave_response"

	MsgTypeEntityAddRequest     MsgType = "entity_add_request"
	MsgTypeEntityAddResponse    MsgType = "entity_add_response"
	MsgTypeEntityMoveRequest    MsgType = "entity_move_request"
	MsgTypeEntityMoveResponse   MsgType = "entity_move_response"
	MsgTypeEntityRemoveRequest  MsgType = "entity_remove_request"
	MsgTypeEntityRemoveResponse MsgType = "entity_remove_response"

	MsgTypeQueryRequest    MsgType = "query_request"
	MsgTypeQueryResponse   MsgType = "query_response"
	MsgTypeRaycastRequest  MsgType = "raycast_request"
	MsgTypeRaycastResponse MsgType = "raycast_response"

	MsgTypeParticipantJoinBroadcast  MsgType = "participant_join_broadcast"
	MsgTypeParticipantLeaveBroadcast MsgType = "participant_leave_broadcast"
	MsgTypeEntityAddBroadcast        MsgType = "entity_add_broadcast"
	MsgTypeEntityMoveBroadcast       MsgType = "entity_move_broadcast"
	MsgTypeEntityRemoveBroadcast     MsgType = "entity_remove_broadcast"

	MsgTypeErrorResponse MsgType = "error_response"
)

// ErrorCode describes why a request failed.
type ErrorCode string

const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeOutOfBounds        ErrorCode = "out_of_bounds"
	ErrorCodeSpaceAlreadyJoined ErrorCode = "space_already_joined"
	ErrorCodeDisabled           ErrorCode = "disabled"
	ErrorCodeInternalError      ErrorCode = "internal_error"
)

// QueryMode selects how a query volume matches entities.
type QueryMode string

const (
	QueryModeContained  QueryMode = "contained"
	QueryModeOverlapped QueryMode = "overlapped"
)

// Msg is a JSON message exchanged over a WebSocket connection.
type Msg struct {
	Type MsgType
	Data []byte
}

// MsgFromBytes decodes the type of a raw message.
func MsgFromBytes(data []byte) (Msg, error) {
	var header struct {
		Type MsgType `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return Msg{}, errors.New("decoding message header failed").
			WithType(ErrTypeMsgDecode).
			Wrap(err)
	}

	return Msg{
		Type: header.Type,
		Data: data,
	}, nil
}

// MsgFromValue encodes v, which must have a JSON type field.
func MsgFromValue(v any) (Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Msg{}, errors.New("encoding message failed").Wrap(err)
	}
	return MsgFromBytes(data)
}

// DataTo decodes the message into v.
func (m Msg) DataTo(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message failed").
			WithType(ErrTypeMsgDecode).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

func (m Msg) TypeString() string {
	if m.Type == "" {
		return "unknown"
	}
	return string(m.Type)
}

// Receiver reads the next message. It also returns the number of bytes read.
type Receiver func() (Msg, int, error)

// Sender writes a message. It returns the number of bytes written.
type Sender func(Msg) (int, error)

// ResponseSender queues messages to be sent to a client.
type ResponseSender interface {
	// Encodes and sends v.
	Send(v any)

	// Sends an already encoded message.
	SendMsg(msg Msg)
}

type Request struct {
	Type      MsgType   `json:"type"`
	RequestID uint32    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

type Response struct {
	Type      MsgType   `json:"type"`
	RequestID uint32    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	Type      MsgType   `json:"type"`
	RequestID uint32    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message,omitempty"`
}

type SpaceJoinRequest struct {
	Type      MsgType   `json:"type"`
	RequestID uint32    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Space     string    `json:"space"`
}

type SpaceJoinResponse struct {
	Type          MsgType                  `json:"type"`
	RequestID     uint32                   `json:"request_id"`
	Timestamp     time.Time                `json:"timestamp"`
	Space         string                   `json:"space"`
	SpaceUUID     string                   `json:"space_uuid"`
	ParticipantID uint32                   `json:"participant_id"`
	Bounds        geometry.Volume[float64] `json:"bounds"`
	Entities      []models.Entity          `json:"entities"`
}

type EntityAddRequest struct {
	Type      MsgType                  `json:"type"`
	RequestID uint32                   `json:"request_id"`
	Timestamp time.Time                `json:"timestamp"`
	Volume    geometry.Volume[float64] `json:"volume"`
}

type EntityMoveRequest struct {
	Type      MsgType                  `json:"type"`
	RequestID uint32                   `json:"request_id"`
	Timestamp time.Time                `json:"timestamp"`
	EntityID  uint32                   `json:"entity_id"`
	Volume    geometry.Volume[float64] `json:"volume"`
}

type EntityRemoveRequest struct {
	Type      MsgType   `json:"type"`
	RequestID uint32    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	EntityID  uint32    `json:"entity_id"`
}

// EntityResponse answers entity add, move and remove requests.
type EntityResponse struct {
	Type      MsgType       `json:"type"`
	RequestID uint32        `json:"request_id"`
	Timestamp time.Time     `json:"timestamp"`
	Entity    models.Entity `json:"entity"`
}

type QueryRequest struct {
	Type      MsgType                  `json:"type"`
	RequestID uint32                   `json:"request_id"`
	Timestamp time.Time                `json:"timestamp"`
	Mode      QueryMode                `json:"mode"`
	Volume    geometry.Volume[float64] `json:"volume"`
}

type QueryResponse struct {
	Type      MsgType         `json:"type"`
	RequestID uint32          `json:"request_id"`
	Timestamp time.Time       `json:"timestamp"`
	Entities  []models.Entity `json:"entities"`
}

type RaycastRequest struct {
	Type      MsgType          `json:"type"`
	RequestID uint32           `json:"request_id"`
	Timestamp time.Time        `json:"timestamp"`
	Origin    geometry.Vector3 `json:"origin"`
	Direction geometry.Vector3 `json:"direction"`
	Limit     int              `json:"limit,omitempty"`
}

type RaycastResponse struct {
	Type      MsgType             `json:"type"`
	RequestID uint32              `json:"request_id"`
	Timestamp time.Time           `json:"timestamp"`
	Hits      []models.RaycastHit `json:"hits"`
}

type ParticipantBroadcast struct {
	Type            MsgType   `json:"type"`
	Timestamp       time.Time `json:"timestamp"`
	OriginTimestamp time.Time `json:"origin_timestamp"`
	ParticipantID   uint32    `json:"participant_id"`
}

type EntityBroadcast struct {
	Type            MsgType       `json:"type"`
	Timestamp       time.Time     `json:"timestamp"`
	OriginTimestamp time.Time     `json:"origin_timestamp"`
	Entity          models.Entity `json:"entity"`
}
