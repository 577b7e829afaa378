package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"ride-pool/internal/domain/chat"
	"ride-pool/internal/domain/ride"
	"ride-pool/internal/domain/user"
	"ride-pool/internal/general/jwt"
	"ride-pool/internal/general/logger"
	"ride-pool/internal/general/websocket"
	"ride-pool/internal/ports"
)

// PoolHTTPHandler adapts HTTP requests to the RideService and ChatService.
type PoolHTTPHandler struct {
	rides  ports.RideService
	chat   ports.ChatService
	logger *logger.Logger
	auth   *jwt.Manager
	socket *websocket.ChatSocket
}

// NewPoolHTTPHandler wires an HTTP handler around the pool services.
func NewPoolHTTPHandler(
	rides ports.RideService,
	chatSvc ports.ChatService,
	logger *logger.Logger,
	auth *jwt.Manager,
	socket *websocket.ChatSocket,
) *PoolHTTPHandler {
	return &PoolHTTPHandler{rides: rides, chat: chatSvc, logger: logger, auth: auth, socket: socket}
}

// RegisterRoutes mounts the pool endpoints on the provided mux.
func (handler *PoolHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	authed := jwt.AuthMiddlewareFunc(handler.auth)

	mux.HandleFunc("POST /rides", authed(handler.handleCreateRide))
	mux.HandleFunc("GET /rides", authed(handler.handleListRides))
	mux.HandleFunc("GET /rides/mine", authed(handler.handleMyRides))
	mux.HandleFunc("GET /rides/{ride_id}", authed(handler.handleGetRide))

	mux.HandleFunc("POST /rides/{ride_id}/requests", authed(handler.handleSubmitRequest))
	mux.HandleFunc("POST /rides/{ride_id}/requests/cancel", authed(handler.handleCancelRequest))
	mux.HandleFunc("POST /rides/{ride_id}/decision", authed(handler.handleDecision))

	mux.HandleFunc("POST /rides/{ride_id}/close", authed(handler.handleCloseRide))
	mux.HandleFunc("POST /rides/{ride_id}/reschedule", authed(handler.handleReschedule))
	mux.HandleFunc("POST /rides/{ride_id}/chat-access", authed(handler.handleChatAccess))

	mux.HandleFunc("GET /rides/{ride_id}/chat/messages", authed(handler.handleChatHistory))
	mux.HandleFunc("POST /rides/{ride_id}/chat/messages", authed(handler.handlePostMessage))

	// WebSocket authenticates via its first frame, not the middleware
	mux.HandleFunc("GET /ws/chat", handler.socket.Connect)

	mux.HandleFunc("GET /rides/health", handler.handleHealth)
	mux.HandleFunc("POST /tokens", handler.handleCreateToken)
}

// ----- general helpers -----

// actor resolves the authenticated identity or writes a 401.
func (handler *PoolHTTPHandler) actor(ctx context.Context, w http.ResponseWriter, r *http.Request) (user.Identity, bool) {
	id := jwt.RequireIdentity(r)
	if !id.Valid() {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return user.Identity{}, false
	}
	return id, true
}

// rideID extracts and checks the path parameter.
func (handler *PoolHTTPHandler) rideID(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("ride_id"))
	if id == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing ride_id in path", nil)
		return "", false
	}
	return id, true
}

// requireJSON enforces the request content type on body-carrying endpoints.
func (handler *PoolHTTPHandler) requireJSON(ctx context.Context, w http.ResponseWriter, r *http.Request) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}
	return true
}

// serviceError maps domain errors onto HTTP statuses. Precondition
// failures are conflicts: the request was well-formed but the ride's
// current state refuses it.
func (handler *PoolHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ride.ErrNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, "ride not found", err)
	case errors.Is(err, ride.ErrForbidden), errors.Is(err, chat.ErrChatForbidden):
		handler.httpError(ctx, w, http.StatusForbidden, "not allowed", err)
	case errors.Is(err, ride.ErrInvalidInput), errors.Is(err, chat.ErrInvalidBody):
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, ride.ErrInvalidState),
		errors.Is(err, ride.ErrSelfRequest),
		errors.Is(err, ride.ErrAlreadyRequested),
		errors.Is(err, ride.ErrGenderMismatch),
		errors.Is(err, ride.ErrNoSeatsLeft),
		errors.Is(err, ride.ErrNoPendingRequest),
		errors.Is(err, ride.ErrNotRequested):
		handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)
	default:
		handler.httpError(ctx, w, http.StatusInternalServerError, "internal error", err)
	}
}

// ----- token issuing (testing convenience) -----

type TokenRequest struct {
	UserID string `json:"user_id"`
	Realm  string `json:"realm"`
	Gender string `json:"gender"`
	Name   string `json:"name"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Realm     string    `json:"realm"`
}

// handleCreateToken generates JWT tokens for testing.
func (handler *PoolHTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := user.Identity{
		ID:     strings.TrimSpace(req.UserID),
		Realm:  strings.TrimSpace(req.Realm),
		Gender: strings.TrimSpace(req.Gender),
		Name:   strings.TrimSpace(req.Name),
	}
	if !id.Valid() {
		handler.httpError(ctx, w, http.StatusBadRequest, "user_id and realm are required", nil)
		return
	}

	tokenString, claims, err := handler.auth.IssueToken(id)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	handler.logger.Info(ctx, "token_generated", "JWT token generated successfully",
		map[string]any{"user_id": id.ID, "realm": id.Realm})

	handler.jsonResponse(ctx, w, http.StatusCreated, TokenResponse{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
		UserID:    id.ID,
		Realm:     id.Realm,
	})
}

// handleHealth responds to liveness probes.
func (handler *PoolHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	handler.jsonResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse takes any type of data and encode it to HTTP response.
func (handler *PoolHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *PoolHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *PoolHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
