package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/spatial/featureflag"
	"github.com/aukilabs/spatial/geometry"
	"github.com/aukilabs/spatial/models"
	"github.com/aukilabs/spatial/spatial"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const defaultScenarioTimeout = time.Second * 5

// ErrScenarioMsgSkip is returned by a scenario receive handler to ignore
// the current message and wait for the next one.
var ErrScenarioMsgSkip = fmt.Errorf("scenario message skipped")

// Creates a testing environement to unit test handlers.
func NewTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, *websocket.Conn, func()) {
	var mutex sync.Mutex
	logger := t.Log

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}

	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		if logger != nil {
			logger(e)
		}
	})

	errors.Encoder = json.Marshal

	clientA, clientB, close := newTestingEnv(t, newHandler)
	return clientA, clientB, func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = nil
		close()
	}
}

func newTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, *websocket.Conn, func()) {
	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			handler := newHandler()
			defer handler.Close()

			Handle(context.Background(), conn, handler)
		},
	})

	newConn := func() *websocket.Conn {
		config, err := websocket.NewConfig(
			strings.ReplaceAll(server.URL, "http://", "ws://"),
			"http://localhost",
		)
		if err != nil {
			t.Fatalf("error initializing web socket: %s", err)
		}

		config.Header.Set("User-Agent", "ted")
		config.Header.Set("X-Forwarded-for", "192.0.0.0")
		config.Header.Set(HeaderClientID, uuid.NewString())

		conn, err := websocket.DialConfig(config)
		if err != nil {
			t.Fatalf("error dialing web socket: %s", err)
		}

		return conn
	}

	clientA := newConn()
	clientB := newConn()

	return clientA, clientB, func() {
		clientA.Close()
		clientB.Close()
		server.Close()
	}
}

// newTestSpaceStore returns a store holding a space named "test" that covers
// [0, 100] on every axis.
func newTestSpaceStore(t *testing.T) *models.SpaceStore {
	space, err := models.NewSpace("test", spatial.OctTreeConfig[float64]{
		Bounds:       geometry.VolumeOf(0.0, 100, 0, 100, 0, 100),
		TrimOnRemove: true,
	})
	if err != nil {
		t.Fatalf("error creating test space: %s", err)
	}

	var spaces models.SpaceStore
	if err := spaces.Add(context.Background(), space); err != nil {
		t.Fatalf("error adding test space: %s", err)
	}
	return &spaces
}

func newTestHandler(spaces *models.SpaceStore, flags ...featureflag.Flag) func() Handler {
	names := make([]string, len(flags))
	for i, f := range flags {
		names[i] = string(f)
	}
	featureFlags := featureflag.New(names)

	return func() Handler {
		var h Handler = &RealtimeHandler{
			ClientIdleTimeout: time.Minute,
			Spaces:            spaces,
			FeatureFlags:      featureFlags,
		}

		h = HandlerWithLogs(h, time.Millisecond*100)
		h = HandlerWithMetrics(h, "https://spatial-test.com")
		return h
	}
}

// Scenario plays a sequence of sends and receives over a client connection.
type Scenario struct {
	conn  *websocket.Conn
	steps []func(context.Context) error
}

func NewScenario(conn *websocket.Conn) *Scenario {
	return &Scenario{conn: conn}
}

// Send encodes and writes the value returned by newMsg.
func (s *Scenario) Send(newMsg func() any) *Scenario {
	s.steps = append(s.steps, func(ctx context.Context) error {
		data, err := json.Marshal(newMsg())
		if err != nil {
			return errors.New("encoding scenario message failed").Wrap(err)
		}
		return websocket.Message.Send(s.conn, string(data))
	})
	return s
}

// Receive reads messages until one passes all the given handlers. A handler
// returning ErrScenarioMsgSkip discards the message.
func (s *Scenario) Receive(handlers ...func(Msg) error) *Scenario {
	s.steps = append(s.steps, func(ctx context.Context) error {
		for {
			msg, err := s.receive(ctx)
			if err != nil {
				return err
			}

			if err = applyHandlers(msg, handlers); err == ErrScenarioMsgSkip {
				continue
			}
			return err
		}
	})
	return s
}

func (s *Scenario) Run(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, defaultScenarioTimeout)
		defer cancel()
	}

	for _, step := range s.steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scenario) receive(ctx context.Context) (Msg, error) {
	deadline, _ := ctx.Deadline()
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return Msg{}, err
	}

	var data []byte
	if err := websocket.Message.Receive(s.conn, &data); err != nil {
		return Msg{}, err
	}
	return MsgFromBytes(data)
}

func applyHandlers(msg Msg, handlers []func(Msg) error) error {
	for _, h := range handlers {
		if err := h(msg); err != nil {
			return err
		}
	}
	return nil
}

// FilterByType skips messages that are not of the given type.
func FilterByType(t MsgType) func(Msg) error {
	return func(msg Msg) error {
		if msg.Type != t {
			return ErrScenarioMsgSkip
		}
		return nil
	}
}

// FilterByRequestID skips messages that do not answer the given request.
func FilterByRequestID(id uint32) func(Msg) error {
	return func(msg Msg) error {
		var res Response
		if err := msg.DataTo(&res); err != nil {
			return err
		}
		if res.RequestID != id {
			return ErrScenarioMsgSkip
		}
		return nil
	}
}
