package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/analytics-eventqueue/internal/ratelimit"
)

// RegisterRoutes registers the event routes. Ingestion uses the default method based scope,
// flushing is an admin operation.
func RegisterRoutes(api huma.API, h *EventHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "put-events",
		Method:        http.MethodPost,
		Path:          "/events",
		Summary:       "Store events",
		Description:   "Appends serialized events to the local queue in request order.",
		Tags:          []string{"Events"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{http.StatusTooManyRequests, http.StatusInsufficientStorage},
	}, h.PutEvents)

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List stored events",
		Description: "Returns the oldest stored events without removing them.",
		Tags:        []string{"Events"},
	}, h.ListEvents)

	huma.Register(api, huma.Operation{
		OperationID: "flush-events",
		Method:      http.MethodPost,
		Path:        "/events/flush",
		Summary:     "Deliver stored events",
		Description: "Publishes stored events in batches and removes the delivered ones.",
		Tags:        []string{"Events"},
		Errors:      []int{http.StatusTooManyRequests, http.StatusBadGateway},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeAdmin},
		},
	}, h.Flush)
}
