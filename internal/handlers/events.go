package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/analytics-eventqueue/internal/analytics"
	"github.com/serroba/analytics-eventqueue/internal/delivery"
	"go.uber.org/zap"
)

// Queue is the event store served over HTTP.
type Queue interface {
	analytics.EventStore
	Len(ctx context.Context) (int, error)
}

// Flusher runs one delivery pass.
type Flusher interface {
	Deliver(ctx context.Context) (delivery.Result, error)
}

// EventHandler handles event ingestion and inspection.
type EventHandler struct {
	queue   Queue
	flusher Flusher
	logger  *zap.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(queue Queue, flusher Flusher, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		queue:   queue,
		flusher: flusher,
		logger:  logger,
	}
}

// PutEvents stores the request events in order. Events before a failing one stay stored.
func (h *EventHandler) PutEvents(ctx context.Context, req *PutEventsRequest) (*PutEventsResponse, error) {
	logger := h.logger.With(RequestMetaFromContext(ctx).Fields()...)

	for i, raw := range req.Body.Events {
		if err := h.queue.Put(ctx, analytics.Event(raw)); err != nil {
			msg := fmt.Sprintf("stored %d of %d events", i, len(req.Body.Events))

			if errors.Is(err, analytics.ErrStoreFull) {
				logger.Warn("event store full", zap.Int("accepted", i))

				return nil, huma.NewError(http.StatusInsufficientStorage, "event store full: "+msg)
			}

			logger.Error("failed to store event", zap.Int("accepted", i), zap.Error(err))

			return nil, huma.Error500InternalServerError("failed to store events: " + msg)
		}
	}

	resp := &PutEventsResponse{}
	resp.Body.Accepted = len(req.Body.Events)

	return resp, nil
}

// ListEvents shows the oldest stored events without removing them.
func (h *EventHandler) ListEvents(ctx context.Context, req *ListEventsRequest) (*ListEventsResponse, error) {
	it, err := h.queue.Iterator(ctx)
	if err != nil {
		h.logger.Error("failed to read events", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to read events")
	}

	events := make([]string, 0, min(req.Limit, 100))

	for len(events) < req.Limit && it.HasNext() {
		e, err := it.Next()
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to read events")
		}

		events = append(events, string(e))
	}

	total, err := h.queue.Len(ctx)
	if err != nil {
		h.logger.Error("failed to count events", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to count events")
	}

	resp := &ListEventsResponse{}
	resp.Body.Events = events
	resp.Body.Total = total

	return resp, nil
}

// Flush delivers stored events now instead of waiting for the scheduler.
func (h *EventHandler) Flush(ctx context.Context, _ *struct{}) (*FlushResponse, error) {
	res, err := h.flusher.Deliver(ctx)
	if err != nil {
		h.logger.Error("manual flush failed",
			append(RequestMetaFromContext(ctx).Fields(),
				zap.Int("delivered", res.Delivered),
				zap.Error(err),
			)...,
		)

		msg := fmt.Sprintf("flush stopped after %d events in %d batches", res.Delivered, res.Batches)

		if errors.Is(err, delivery.ErrPublish) {
			return nil, huma.Error502BadGateway(msg)
		}

		return nil, huma.Error500InternalServerError(msg)
	}

	resp := &FlushResponse{}
	resp.Body.Delivered = res.Delivered
	resp.Body.Batches = res.Batches

	return resp, nil
}
