package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/auth"
	"github.com/vyrodovalexey/adminstate/internal/model"
	"github.com/vyrodovalexey/adminstate/internal/store"
)

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

// PersonHandler handles the person REST resource.
type PersonHandler struct {
	store  store.Store
	logger *zap.Logger
}

// NewPersonHandler creates a new PersonHandler instance.
func NewPersonHandler(s store.Store, logger *zap.Logger) *PersonHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonHandler{
		store:  s,
		logger: logger,
	}
}

// RegisterRoutes registers the person routes with the router.
func (h *PersonHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/person", h.ListPersons).Methods(http.MethodGet)
	router.HandleFunc("/person", h.CreatePerson).Methods(http.MethodPost)
	router.HandleFunc("/person/{id}", h.GetPerson).Methods(http.MethodGet)
	router.HandleFunc("/person/{id}", h.UpdatePerson).Methods(http.MethodPut)
	router.HandleFunc("/person/{id}", h.DeletePerson).Methods(http.MethodDelete)
}

// ListPersons handles GET /person?page=&perPage= requests.
func (h *PersonHandler) ListPersons(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	perPage, err := queryInt(r, "perPage", store.DefaultPerPage)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "perPage must be a positive integer")
		return
	}

	result, err := h.store.List(r.Context(), page, perPage)
	if err != nil {
		h.handleStoreError(w, err, "list persons")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}

// GetPerson handles GET /person/{id} requests.
func (h *PersonHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	person, err := h.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleStoreError(w, err, "get person")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.PersonResponse{Person: *person})
}

// CreatePerson handles POST /person requests. The authenticated subject owns
// the new record.
func (h *PersonHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	var owner store.Owner
	if info, found := auth.FromContext(r.Context()); found {
		owner = store.Owner{ID: info.Subject, Username: info.Subject}
	}

	person, err := h.store.Create(r.Context(), input, owner)
	if err != nil {
		h.handleStoreError(w, err, "create person")
		return
	}

	h.logger.Info("person created",
		zap.String("id", person.ID),
		zap.String("owner", owner.Username),
	)
	writeJSON(w, h.logger, http.StatusCreated, model.PersonResponse{Person: *person})
}

// UpdatePerson handles PUT /person/{id} requests.
func (h *PersonHandler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	person, err := h.store.Update(r.Context(), mux.Vars(r)["id"], input)
	if err != nil {
		h.handleStoreError(w, err, "update person")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.PersonResponse{Person: *person})
}

// DeletePerson handles DELETE /person/{id} requests.
func (h *PersonHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.handleStoreError(w, err, "delete person")
		return
	}

	writeJSON(w, h.logger, http.StatusNoContent, nil)
}

// decodeInput reads and validates a person body. It writes the 400 response
// itself and reports false when the body is unusable.
func (h *PersonHandler) decodeInput(w http.ResponseWriter, r *http.Request) (*model.PersonInput, bool) {
	var input model.PersonInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return nil, false
	}

	return &input, true
}

// handleStoreError maps store errors to HTTP responses.
func (h *PersonHandler) handleStoreError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "person not found")
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, h.logger, http.StatusBadRequest, "invalid person ID")
	case errors.Is(err, store.ErrInvalidPage):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, h.logger, http.StatusConflict, err.Error())
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
	}
}

// queryInt parses a positive integer query parameter, returning def when it
// is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, store.ErrInvalidPage
	}
	return n, nil
}
