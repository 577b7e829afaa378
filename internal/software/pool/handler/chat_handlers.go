package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"ride-pool/internal/domain/chat"
)

// ChatMessageView is the REST shape of one chat log entry.
type ChatMessageView struct {
	ID         string    `json:"id"`
	RideID     string    `json:"ride_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sent_at"`
}

func toMessageViews(msgs []*chat.Message) []ChatMessageView {
	out := make([]ChatMessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ChatMessageView{
			ID:         m.ID,
			RideID:     m.RideID,
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Body:       m.Body,
			SentAt:     m.SentAt,
		})
	}
	return out
}

// ----- Handler: GET /rides/{ride_id}/chat/messages -----

func (handler *PoolHTTPHandler) handleChatHistory(w http.ResponseWriter, r *http.Request) {
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

	var limit int64
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			handler.httpError(ctx, w, http.StatusBadRequest, "invalid limit", err)
			return
		}
		limit = n
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msgs, err := handler.chat.History(ctxWithTimeout, actor, rideID, limit)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{"messages": toMessageViews(msgs)})
}

// ----- Handler: POST /rides/{ride_id}/chat/messages -----

type PostMessageRequest struct {
	Body string `json:"body"`
}

func (handler *PoolHTTPHandler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
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

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msg, err := handler.chat.Post(ctxWithTimeout, actor, rideID, req.Body)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	views := toMessageViews([]*chat.Message{msg})
	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, views[0])
}
