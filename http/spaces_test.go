package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aukilabs/spatial/featureflag"
	"github.com/aukilabs/spatial/geometry"
	"github.com/aukilabs/spatial/models"
	"github.com/aukilabs/spatial/spatial"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, flags ...string) *httptest.Server {
	var mux http.ServeMux

	h := SpacesHandler{
		Spaces: &models.SpaceStore{},
		DefaultConfig: spatial.OctTreeConfig[float64]{
			Bounds: geometry.VolumeOf(0.0, 100, 0, 100, 0, 100),
		},
		FeatureFlags: featureflag.New(flags),
	}
	h.Register(&mux)

	server := httptest.NewServer(&mux)
	t.Cleanup(server.Close)
	return server
}

func doRequest(t *testing.T, method, url string, body any, out any) int {
	var reader bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader.Reset(b)
	}

	req, err := http.NewRequest(method, url, &reader)
	require.NoError(t, err)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	if out != nil && res.StatusCode < http.StatusMultipleChoices {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestSpacesHandlerSpaces(t *testing.T) {
	server := newTestServer(t)

	var stats models.SpaceStats
	status := doRequest(t, http.MethodPost, server.URL+"/spaces", CreateSpaceRequest{Name: "lobby"}, &stats)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "lobby", stats.Name)
	require.NotEmpty(t, stats.UUID)
	require.Equal(t, geometry.VolumeOf(0.0, 100, 0, 100, 0, 100), stats.Bounds)
	require.Equal(t, 1, stats.Tree.Nodes)

	status = doRequest(t, http.MethodPost, server.URL+"/spaces", CreateSpaceRequest{Name: "lobby"}, nil)
	require.Equal(t, http.StatusConflict, status)

	status = doRequest(t, http.MethodPost, server.URL+"/spaces", CreateSpaceRequest{}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	bounds := geometry.VolumeOf(0.0, 10, 0, 0, 0, 10)
	status = doRequest(t, http.MethodPost, server.URL+"/spaces", CreateSpaceRequest{Name: "flat", Bounds: &bounds}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	trim := true
	bounds = geometry.VolumeOf(-50.0, 50, -50, 50, -50, 50)
	status = doRequest(t, http.MethodPost, server.URL+"/spaces", CreateSpaceRequest{
		Name:         "arena",
		Bounds:       &bounds,
		TrimOnRemove: &trim,
	}, &stats)
	require.Equal(t, http.StatusCreated, status)
	require.True(t, stats.TrimOnRemove)
	require.Equal(t, bounds, stats.Bounds)

	var spaces SpacesResponse
	status = doRequest(t, http.MethodGet, server.URL+"/spaces", nil, &spaces)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, []string{"arena", "lobby"}, spaces.Spaces)

	status = doRequest(t, http.MethodGet, server.URL+"/spaces/arena", nil, &stats)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "arena", stats.Name)

	status = doRequest(t, http.MethodDelete, server.URL+"/spaces/arena", nil, nil)
	require.Equal(t, http.StatusNoContent, status)

	status = doRequest(t, http.MethodGet, server.URL+"/spaces/arena", nil, nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestSpacesHandlerEntities(t *testing.T) {
	server := newTestServer(t)
	status := doRequest(t, http.MethodPost, server.URL+"/spaces", CreateSpaceRequest{Name: "lobby"}, nil)
	require.Equal(t, http.StatusCreated, status)

	volumes := []geometry.Volume[float64]{
		geometry.VolumeOf(10.0, 20, 11, 21, 0, 99),
		geometry.VolumeOf(15.0, 25, 16, 26, 0, 99),
		geometry.VolumeOf(25.0, 35, 26, 36, 0, 99),
	}

	for i, v := range volumes {
		var e models.Entity
		status := doRequest(t, http.MethodPost, server.URL+"/spaces/lobby/entities", VolumeRequest{Volume: v}, &e)
		require.Equal(t, http.StatusCreated, status)
		require.Equal(t, uint32(i+1), e.ID)
		require.Equal(t, v, e.Volume)
	}

	t.Run("out of bounds", func(t *testing.T) {
		status := doRequest(t, http.MethodPost, server.URL+"/spaces/lobby/entities", VolumeRequest{
			Volume: geometry.VolumeOf(-100.0, 200, -100, 200, -100, 200),
		}, nil)
		require.Equal(t, http.StatusUnprocessableEntity, status)
	})

	t.Run("unknown space", func(t *testing.T) {
		status := doRequest(t, http.MethodPost, server.URL+"/spaces/nowhere/entities", VolumeRequest{Volume: volumes[0]}, nil)
		require.Equal(t, http.StatusNotFound, status)
	})

	t.Run("get", func(t *testing.T) {
		var e models.Entity
		status := doRequest(t, http.MethodGet, server.URL+"/spaces/lobby/entities/2", nil, &e)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, volumes[1], e.Volume)

		status = doRequest(t, http.MethodGet, server.URL+"/spaces/lobby/entities/42", nil, nil)
		require.Equal(t, http.StatusNotFound, status)

		status = doRequest(t, http.MethodGet, server.URL+"/spaces/lobby/entities/abc", nil, nil)
		require.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("list", func(t *testing.T) {
		var res EntitiesResponse
		status := doRequest(t, http.MethodGet, server.URL+"/spaces/lobby/entities", nil, &res)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, res.Entities, 3)
	})

	t.Run("queries", func(t *testing.T) {
		var res EntitiesResponse
		status := doRequest(t, http.MethodPost, server.URL+"/spaces/lobby/contained", VolumeRequest{
			Volume: geometry.VolumeOf(0.0, 30, 0, 30, 0, 100),
		}, &res)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, res.Entities, 2)

		status = doRequest(t, http.MethodPost, server.URL+"/spaces/lobby/overlapped", VolumeRequest{
			Volume: geometry.VolumeOf(34.0, 50, 35, 50, 0, 1),
		}, &res)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, res.Entities, 1)
		require.Equal(t, uint32(3), res.Entities[0].ID)
	})

	t.Run("raycast", func(t *testing.T) {
		var res RaycastResponse
		status := doRequest(t, http.MethodPost, server.URL+"/spaces/lobby/raycast", RaycastRequest{
			Origin:    geometry.Vector3{X: 0, Y: 0, Z: 1},
			Direction: geometry.Vector3{X: 1, Y: 1},
		}, &res)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, res.Hits, 3)
		for i, hit := range res.Hits {
			require.Equal(t, uint32(i+1), hit.ID)
			require.Equal(t, volumes[i], hit.Volume)
		}

		status = doRequest(t, http.MethodPost, server.URL+"/spaces/lobby/raycast", RaycastRequest{
			Direction: geometry.Vector3{X: 1, Z: 1},
		}, &res)
		require.Equal(t, http.StatusOK, status)
		require.Empty(t, res.Hits)

		status = doRequest(t, http.MethodPost, server.URL+"/spaces/lobby/raycast", RaycastRequest{}, nil)
		require.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("move", func(t *testing.T) {
		var e models.Entity
		moved := geometry.VolumeOf(80.0, 90, 80, 90, 80, 90)
		status := doRequest(t, http.MethodPut, server.URL+"/spaces/lobby/entities/1", VolumeRequest{Volume: moved}, &e)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, moved, e.Volume)

		status = doRequest(t, http.MethodPut, server.URL+"/spaces/lobby/entities/1", VolumeRequest{
			Volume: geometry.VolumeOf(80.0, 190, 80, 90, 80, 90),
		}, nil)
		require.Equal(t, http.StatusUnprocessableEntity, status)
	})

	t.Run("remove trim and clear", func(t *testing.T) {
		status := doRequest(t, http.MethodDelete, server.URL+"/spaces/lobby/entities/1", nil, nil)
		require.Equal(t, http.StatusNoContent, status)

		status = doRequest(t, http.MethodDelete, server.URL+"/spaces/lobby/entities/1", nil, nil)
		require.Equal(t, http.StatusNotFound, status)

		var stats models.SpaceStats
		status = doRequest(t, http.MethodPost, server.URL+"/spaces/lobby/trim", nil, &stats)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, 2, stats.Entities)

		status = doRequest(t, http.MethodPost, server.URL+"/spaces/lobby/clear", nil, &stats)
		require.Equal(t, http.StatusOK, status)
		require.Zero(t, stats.Entities)
		require.Equal(t, 1, stats.Tree.Nodes)
	})
}

func TestSpacesHandlerRaycastDisabled(t *testing.T) {
	server := newTestServer(t, string(featureflag.FlagDisableRaycast))
	status := doRequest(t, http.MethodPost, server.URL+"/spaces", CreateSpaceRequest{Name: "lobby"}, nil)
	require.Equal(t, http.StatusCreated, status)

	status = doRequest(t, http.MethodPost, server.URL+"/spaces/lobby/raycast", RaycastRequest{
		Direction: geometry.Vector3{X: 1},
	}, nil)
	require.Equal(t, http.StatusForbidden, status)
}

func TestHandleWithCORS(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/spaces/lobby/raycast", nil)
	require.NoError(t, err)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsPathFormatter(t *testing.T) {
	tests := []struct {
		status   int
		path     string
		expected string
	}{
		{status: http.StatusNotFound, path: "/spaces/lobby", expected: ""},
		{status: http.StatusOK, path: "/health", expected: "/health"},
		{status: http.StatusOK, path: "/spaces", expected: "/spaces"},
		{status: http.StatusOK, path: "/spaces/lobby", expected: "/spaces/{name}"},
		{status: http.StatusOK, path: "/spaces/lobby/raycast", expected: "/spaces/{name}/raycast"},
		{status: http.StatusCreated, path: "/spaces/lobby/entities/12", expected: "/spaces/{name}/entities/{id}"},
	}

	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			require.Equal(t, test.expected, MetricsPathFormatter(test.status, test.path))
		})
	}
}

func TestHandleReadyCheck(t *testing.T) {
	ready := false
	h := HandleReadyCheck(func() bool { return ready })

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready = true
	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

type notification struct {
	Kind   string
	Space  string
	Entity models.Entity
}

type recordingNotifier struct {
	mutex         sync.Mutex
	notifications []notification
}

func (n *recordingNotifier) NotifyEntityAdd(space *models.Space, e models.Entity) {
	n.record("add", space, e)
}

func (n *recordingNotifier) NotifyEntityMove(space *models.Space, e models.Entity) {
	n.record("move", space, e)
}

func (n *recordingNotifier) NotifyEntityRemove(space *models.Space, e models.Entity) {
	n.record("remove", space, e)
}

func (n *recordingNotifier) record(kind string, space *models.Space, e models.Entity) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.notifications = append(n.notifications, notification{
		Kind:   kind,
		Space:  space.Name,
		Entity: e,
	})
}

func TestSpacesHandlerNotifiesEntityChanges(t *testing.T) {
	notifier := &recordingNotifier{}

	var mux http.ServeMux
	h := SpacesHandler{
		Spaces: &models.SpaceStore{},
		DefaultConfig: spatial.OctTreeConfig[float64]{
			Bounds: geometry.VolumeOf(0.0, 100, 0, 100, 0, 100),
		},
		Notifier: notifier,
	}
	h.Register(&mux)

	server := httptest.NewServer(&mux)
	defer server.Close()

	status := doRequest(t, http.MethodPost, server.URL+"/spaces", CreateSpaceRequest{Name: "lobby"}, nil)
	require.Equal(t, http.StatusCreated, status)

	first := geometry.VolumeOf(10.0, 20, 10, 20, 10, 20)
	second := geometry.VolumeOf(30.0, 40, 30, 40, 30, 40)
	moved := geometry.VolumeOf(50.0, 60, 50, 60, 50, 60)

	status = doRequest(t, http.MethodPost, server.URL+"/spaces/lobby/entities", VolumeRequest{Volume: first}, nil)
	require.Equal(t, http.StatusCreated, status)
	status = doRequest(t, http.MethodPost, server.URL+"/spaces/lobby/entities", VolumeRequest{Volume: second}, nil)
	require.Equal(t, http.StatusCreated, status)

	status = doRequest(t, http.MethodPut, server.URL+"/spaces/lobby/entities/1", VolumeRequest{Volume: moved}, nil)
	require.Equal(t, http.StatusOK, status)

	status = doRequest(t, http.MethodDelete, server.URL+"/spaces/lobby/entities/1", nil, nil)
	require.Equal(t, http.StatusNoContent, status)

	status = doRequest(t, http.MethodPost, server.URL+"/spaces/lobby/clear", nil, nil)
	require.Equal(t, http.StatusOK, status)

	status = doRequest(t, http.MethodDelete, server.URL+"/spaces/lobby/entities/1", nil, nil)
	require.Equal(t, http.StatusNotFound, status)

	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()

	require.Equal(t, []notification{
		{Kind: "add", Space: "lobby", Entity: models.Entity{ID: 1, Volume: first}},
		{Kind: "add", Space: "lobby", Entity: models.Entity{ID: 2, Volume: second}},
		{Kind: "move", Space: "lobby", Entity: models.Entity{ID: 1, Volume: moved}},
		{Kind: "remove", Space: "lobby", Entity: models.Entity{ID: 1, Volume: moved}},
		{Kind: "remove", Space: "lobby", Entity: models.Entity{ID: 2, Volume: second}},
	}, notifier.notifications)
}
