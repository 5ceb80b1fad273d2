package http

import (
	"net/http"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/spatial/featureflag"
	"github.com/aukilabs/spatial/geometry"
	"github.com/aukilabs/spatial/models"
	"github.com/aukilabs/spatial/spatial"
)

// SpacesHandler serves the JSON API to manage spaces and query their
// entities.
type SpacesHandler struct {
	// The store that contains all the spaces.
	Spaces *models.SpaceStore

	// The configuration used for the fields a space creation request leaves
	// unset.
	DefaultConfig spatial.OctTreeConfig[float64]

	FeatureFlags featureflag.FeatureFlag

	// Relays the entity changes made through the API to the participants
	// of the changed space. Optional.
	Notifier EntityNotifier
}

// EntityNotifier is told about the entity changes made through the API.
type EntityNotifier interface {
	NotifyEntityAdd(space *models.Space, e models.Entity)
	NotifyEntityMove(space *models.Space, e models.Entity)
	NotifyEntityRemove(space *models.Space, e models.Entity)
}

// CreateSpaceRequest is the body of a space creation request.
type CreateSpaceRequest struct {
	Name             string                    `json:"name"`
	Bounds           *geometry.Volume[float64] `json:"bounds,omitempty"`
	MinimumChildSize *geometry.Vector3         `json:"minimum_child_size,omitempty"`
	TrimOnRemove     *bool                     `json:"trim_on_remove,omitempty"`
}

// VolumeRequest is the body of the requests carrying a volume.
type VolumeRequest struct {
	Volume geometry.Volume[float64] `json:"volume"`
}

// RaycastRequest is the body of a raycast request.
type RaycastRequest struct {
	Origin    geometry.Vector3 `json:"origin"`
	Direction geometry.Vector3 `json:"direction"`
	Limit     int              `json:"limit,omitempty"`
}

// EntitiesResponse lists entities.
type EntitiesResponse struct {
	Entities []models.Entity `json:"entities"`
}

// RaycastResponse lists the entities hit by a ray, nearest first.
type RaycastResponse struct {
	Hits []models.RaycastHit `json:"hits"`
}

// SpacesResponse lists the space names.
type SpacesResponse struct {
	Spaces []string `json:"spaces"`
}

// Register mounts the space routes on mux.
func (h *SpacesHandler) Register(mux *http.ServeMux) {
	mux.Handle("GET /spaces", HandleWithCORS(http.HandlerFunc(h.handleListSpaces)))
	mux.Handle("POST /spaces", HandleWithCORS(http.HandlerFunc(h.handleCreateSpace)))
	mux.Handle("GET /spaces/{name}", HandleWithCORS(http.HandlerFunc(h.handleGetSpace)))
	mux.Handle("DELETE /spaces/{name}", HandleWithCORS(http.HandlerFunc(h.handleDeleteSpace)))
	mux.Handle("GET /spaces/{name}/entities", HandleWithCORS(http.HandlerFunc(h.handleListEntities)))
	mux.Handle("POST /spaces/{name}/entities", HandleWithCORS(http.HandlerFunc(h.handleAddEntity)))
	mux.Handle("GET /spaces/{name}/entities/{id}", HandleWithCORS(http.HandlerFunc(h.handleGetEntity)))
	mux.Handle("PUT /spaces/{name}/entities/{id}", HandleWithCORS(http.HandlerFunc(h.handleMoveEntity)))
	mux.Handle("DELETE /spaces/{name}/entities/{id}", HandleWithCORS(http.HandlerFunc(h.handleRemoveEntity)))
	mux.Handle("POST /spaces/{name}/contained", HandleWithCORS(http.HandlerFunc(h.handleContainedBy)))
	mux.Handle("POST /spaces/{name}/overlapped", HandleWithCORS(http.HandlerFunc(h.handleOverlappedBy)))
	mux.Handle("POST /spaces/{name}/raycast", HandleWithCORS(http.HandlerFunc(h.handleRaycast)))
	mux.Handle("POST /spaces/{name}/trim", HandleWithCORS(http.HandlerFunc(h.handleTrim)))
	mux.Handle("POST /spaces/{name}/clear", HandleWithCORS(http.HandlerFunc(h.handleClear)))

	mux.Handle("OPTIONS /spaces", HandleWithCORS(http.NotFoundHandler()))
	mux.Handle("OPTIONS /spaces/", HandleWithCORS(http.NotFoundHandler()))
}

func (h *SpacesHandler) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SpacesResponse{Spaces: h.Spaces.Names()})
}

func (h *SpacesHandler) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var req CreateSpaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.Name == "" {
		writeError(w, errors.New("space name is empty").WithType(ErrTypeBadRequest))
		return
	}

	space, err := models.NewSpace(req.Name, h.spaceConfig(req))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.Spaces.Add(r.Context(), space); err != nil {
		writeError(w, err)
		return
	}

	logs.WithTag("space", space.Name).
		WithTag("space_uuid", space.SpaceUUID).
		WithTag("config", space.Config().String()).
		Info("space created")
	writeJSON(w, http.StatusCreated, space.Stats())
}

func (h *SpacesHandler) spaceConfig(req CreateSpaceRequest) spatial.OctTreeConfig[float64] {
	config := h.DefaultConfig
	if req.Bounds != nil {
		config.Bounds = *req.Bounds
	}
	if req.MinimumChildSize != nil {
		config.MinimumChildWidth = req.MinimumChildSize.X
		config.MinimumChildHeight = req.MinimumChildSize.Y
		config.MinimumChildDepth = req.MinimumChildSize.Z
	}
	if req.TrimOnRemove != nil {
		config.TrimOnRemove = *req.TrimOnRemove
	}
	return config
}

func (h *SpacesHandler) handleGetSpace(w http.ResponseWriter, r *http.Request) {
	space, err := h.Spaces.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, space.Stats())
}

func (h *SpacesHandler) handleDeleteSpace(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.Spaces.Remove(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}

	logs.WithTag("space", name).Info("space deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *SpacesHandler) handleListEntities(w http.ResponseWriter, r *http.Request) {
	space, err := h.Spaces.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EntitiesResponse{Entities: space.Entities()})
}

func (h *SpacesHandler) handleAddEntity(w http.ResponseWriter, r *http.Request) {
	space, err := h.Spaces.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req VolumeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	e, err := space.AddEntity(nil, req.Volume)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.Notifier != nil {
		h.Notifier.NotifyEntityAdd(space, e)
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *SpacesHandler) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	space, id, err := h.spaceAndEntityID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	e, err := space.EntityByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *SpacesHandler) handleMoveEntity(w http.ResponseWriter, r *http.Request) {
	space, id, err := h.spaceAndEntityID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req VolumeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	e, err := space.MoveEntity(nil, id, req.Volume)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.Notifier != nil {
		h.Notifier.NotifyEntityMove(space, e)
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *SpacesHandler) handleRemoveEntity(w http.ResponseWriter, r *http.Request) {
	space, id, err := h.spaceAndEntityID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	e, err := space.RemoveEntity(nil, id)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.Notifier != nil {
		h.Notifier.NotifyEntityRemove(space, e)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SpacesHandler) spaceAndEntityID(r *http.Request) (*models.Space, uint32, error) {
	space, err := h.Spaces.Get(r.PathValue("name"))
	if err != nil {
		return nil, 0, err
	}

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		return nil, 0, errors.New("invalid entity id").
			WithType(ErrTypeBadRequest).
			WithTag("id", r.PathValue("id")).
			Wrap(err)
	}
	return space, uint32(id), nil
}

func (h *SpacesHandler) handleContainedBy(w http.ResponseWriter, r *http.Request) {
	h.handleVolumeQuery(w, r, (*models.Space).ContainedBy)
}

func (h *SpacesHandler) handleOverlappedBy(w http.ResponseWriter, r *http.Request) {
	h.handleVolumeQuery(w, r, (*models.Space).OverlappedBy)
}

func (h *SpacesHandler) handleVolumeQuery(w http.ResponseWriter, r *http.Request, query func(*models.Space, geometry.Volume[float64]) []models.Entity) {
	space, err := h.Spaces.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req VolumeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EntitiesResponse{Entities: query(space, req.Volume)})
}

func (h *SpacesHandler) handleRaycast(w http.ResponseWriter, r *http.Request) {
	if h.FeatureFlags.IsSet(featureflag.FlagDisableRaycast) {
		writeError(w, errors.New("raycast is disabled").WithType(ErrTypeDisabled))
		return
	}

	space, err := h.Spaces.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req RaycastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ray, err := geometry.NewRay3(req.Origin, req.Direction)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RaycastResponse{Hits: space.Raycast(ray, req.Limit)})
}

func (h *SpacesHandler) handleTrim(w http.ResponseWriter, r *http.Request) {
	space, err := h.Spaces.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	space.Trim()
	writeJSON(w, http.StatusOK, space.Stats())
}

func (h *SpacesHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	space, err := h.Spaces.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	removed := space.Clear()
	if h.Notifier != nil {
		for _, e := range removed {
			h.Notifier.NotifyEntityRemove(space, e)
		}
	}
	writeJSON(w, http.StatusOK, space.Stats())
}
