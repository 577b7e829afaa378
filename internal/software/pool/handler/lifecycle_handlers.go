package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ----- Handler: POST /rides/{ride_id}/close -----

func (handler *PoolHTTPHandler) handleCloseRide(w http.ResponseWriter, r *http.Request) {
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

	view, err := handler.rides.Close(ctxWithTimeout, actor, rideID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}

// ----- Handler: POST /rides/{ride_id}/reschedule -----

type RescheduleRequest struct {
	DepartAt time.Time `json:"depart_at"`
}

func (handler *PoolHTTPHandler) handleReschedule(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if !handler.requireJSON(ctx, w, r) {
		return
	}
	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}
	rideID, ok := handler.rideID(ctx, w, r)
	if !ok {
		return
	}
	ctx = handler.logger.WithRideID(ctx, rideID)

	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.rides.Reschedule(ctxWithTimeout, actor, rideID, req.DepartAt)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}

// ----- Handler: POST /rides/{ride_id}/chat-access -----

type ChatAccessRequest struct {
	Enabled bool `json:"enabled"`
}

func (handler *PoolHTTPHandler) handleChatAccess(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if !handler.requireJSON(ctx, w, r) {
		return
	}
	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}
	rideID, ok := handler.rideID(ctx, w, r)
	if !ok {
		return
	}
	ctx = handler.logger.WithRideID(ctx, rideID)

	var req ChatAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.rides.SetChatAccess(ctxWithTimeout, actor, rideID, req.Enabled)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}
