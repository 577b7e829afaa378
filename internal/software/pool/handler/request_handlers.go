package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"ride-pool/internal/domain/ride"
)

// ----- Handler: POST /rides/{ride_id}/requests -----

func (handler *PoolHTTPHandler) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
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

	view, err := handler.rides.SubmitRequest(ctxWithTimeout, actor, rideID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}

// ----- Handler: POST /rides/{ride_id}/requests/cancel -----

func (handler *PoolHTTPHandler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
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

	view, err := handler.rides.CancelRequest(ctxWithTimeout, actor, rideID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}

// ----- Handler: POST /rides/{ride_id}/decision -----

type DecisionRequest struct {
	UserID   string `json:"user_id"`
	Decision string `json:"decision"`
}

func (handler *PoolHTTPHandler) handleDecision(w http.ResponseWriter, r *http.Request) {
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

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	targetID := strings.TrimSpace(req.UserID)
	if targetID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	decision, err := ride.ParseDecision(req.Decision)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "decision must be ACCEPT or REJECT", err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.rides.Decide(ctxWithTimeout, actor, rideID, targetID, decision)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}
