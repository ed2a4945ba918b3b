package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const deliveryIDKey contextKey = "delivery_id"

// DeliveryIDHeader carries the identifier assigned to an inbound webhook
// delivery. It is echoed in the response so provider logs can be correlated
// with ours.
const DeliveryIDHeader = "X-Delivery-ID"

// DeliveryID tags each webhook delivery with a unique identifier, honoring
// one supplied by the caller.
func DeliveryID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(DeliveryIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(DeliveryIDHeader, id)
		ctx := context.WithValue(r.Context(), deliveryIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetDeliveryID returns the delivery identifier for the request, or "" when
// the middleware did not run.
func GetDeliveryID(ctx context.Context) string {
	id, _ := ctx.Value(deliveryIDKey).(string)
	return id
}
