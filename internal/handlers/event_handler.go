package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shaibs3/careportal/internal/events"
	"go.uber.org/zap"
)

// EventHandler serves the caller's calendar
type EventHandler struct {
	events      *events.Service
	requireAuth Middleware
	logger      *zap.Logger
}

func NewEventHandler(svc *events.Service, requireAuth Middleware) *EventHandler {
	return &EventHandler{events: svc, requireAuth: requireAuth, logger: zap.NewNop()}
}

// RegisterRoutes registers the routes for this handler
func (h *EventHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	h.logger = logger.Named("event_handler")

	router.Handle(apiPrefix+"/events", h.requireAuth(http.HandlerFunc(h.handleCreate))).Methods(http.MethodPost)
	router.Handle(apiPrefix+"/events", h.requireAuth(http.HandlerFunc(h.handleList))).Methods(http.MethodGet)
	router.Handle(apiPrefix+"/events/{id:[0-9]+}", h.requireAuth(http.HandlerFunc(h.handleGet))).Methods(http.MethodGet)
	router.Handle(apiPrefix+"/events/{id:[0-9]+}", h.requireAuth(http.HandlerFunc(h.handleUpdate))).Methods(http.MethodPut)
	router.Handle(apiPrefix+"/events/{id:[0-9]+}", h.requireAuth(http.HandlerFunc(h.handleDelete))).Methods(http.MethodDelete)
}

func (h *EventHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := userID(w, r)
	if !ok {
		return
	}
	var req events.Request
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	id, err := h.events.Create(r.Context(), ownerID, req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Event added successfully",
		"eventId": id,
	})
}

func (h *EventHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := userID(w, r)
	if !ok {
		return
	}
	list, err := h.events.List(r.Context(), ownerID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *EventHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	event, err := h.events.Get(r.Context(), ownerID, id)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req events.Request
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	event, err := h.events.Update(r.Context(), ownerID, id, req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.events.Delete(r.Context(), ownerID, id); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Event deleted successfully")
}

func (h *EventHandler) target(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	ownerID, ok := userID(w, r)
	if !ok {
		return 0, 0, false
	}
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		badRequest(w, "Invalid id")
		return 0, 0, false
	}
	return ownerID, id, true
}
