package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ride-pool/internal/domain/ride"
	"ride-pool/internal/ports"
)

// ----- Handler: POST /rides -----

type CreateRideRequest struct {
	FromLocation    string    `json:"from_location"`
	ToLocation      string    `json:"to_location"`
	Seats           int       `json:"seats"`
	PreferredGender string    `json:"preferred_gender"`
	DepartAt        time.Time `json:"depart_at"`
	AllowChat       *bool     `json:"allow_chat"`
}

func (handler *PoolHTTPHandler) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if !handler.requireJSON(ctx, w, r) {
		return
	}
	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}

	var req CreateRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	policy, err := ride.ParseGenderPolicy(req.PreferredGender)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid preferred_gender", err)
		return
	}

	// chat defaults to enabled when the field is omitted
	allowChat := true
	if req.AllowChat != nil {
		allowChat = *req.AllowChat
	}

	in := ports.CreateRideInput{
		FromLocation:    req.FromLocation,
		ToLocation:      req.ToLocation,
		Seats:           req.Seats,
		PreferredGender: policy,
		DepartAt:        req.DepartAt,
		AllowChat:       allowChat,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.rides.Create(ctxWithTimeout, actor, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, view)
}

// ----- Handler: GET /rides -----

func (handler *PoolHTTPHandler) handleListRides(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}

	filter, err := listFilter(r)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	views, err := handler.rides.List(ctxWithTimeout, actor, filter)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{"rides": views})
}

// listFilter decodes the optional search parameters.
func listFilter(r *http.Request) (ports.RideFilter, error) {
	q := r.URL.Query()
	f := ports.RideFilter{
		FromLocation: strings.TrimSpace(q.Get("from")),
		ToLocation:   strings.TrimSpace(q.Get("to")),
	}

	if v := q.Get("depart_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ports.RideFilter{}, err
		}
		f.DepartAfter = t
	}
	if v := q.Get("depart_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ports.RideFilter{}, err
		}
		f.DepartBefore = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return ports.RideFilter{}, err
		}
		if n < 0 {
			return ports.RideFilter{}, ride.ErrInvalidInput
		}
		f.Limit = n
	}
	return f, nil
}

// ----- Handler: GET /rides/mine -----

func (handler *PoolHTTPHandler) handleMyRides(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	views, err := handler.rides.Mine(ctxWithTimeout, actor)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{"rides": views})
}

// ----- Handler: GET /rides/{ride_id} -----

func (handler *PoolHTTPHandler) handleGetRide(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}
	rideID, ok := handler.rideID(ctx, w, r)
	if !ok {
		return
	}
	ctx = handler.logger.WithRideID(ctx, rideID)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.rides.Get(ctxWithTimeout, actor, rideID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}
