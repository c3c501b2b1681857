package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/navigategovuk/telldoug2-sub001/pkg/requestcontext"
)

// CorrelationHeader carries a caller-supplied correlation ID. When absent
// the middleware generates one so every evaluation and audit write can be
// traced.
const CorrelationHeader = "X-Correlation-ID"

// Correlation injects a correlation ID and the request arrival time into
// the context, and echoes the correlation ID on the response.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		ctx := requestcontext.WithCorrelationID(r.Context(), correlationID)
		ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))

		w.Header().Set(CorrelationHeader, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
