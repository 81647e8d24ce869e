package http

import (
	"net/http"
	"strings"

	"github.com/tavori/storefront/internal/service"
	"github.com/tavori/storefront/pkg/httputil"
)

// ownerFromRequest extracts the cart owner identity from the request
// headers. Authentication itself lives upstream; by the time a request gets
// here the gateway has either stamped X-User-ID or left the caller with its
// anonymous X-Session-Token.
func ownerFromRequest(r *http.Request) service.Owner {
	return service.Owner{
		UserID:       strings.TrimSpace(r.Header.Get("X-User-ID")),
		SessionToken: strings.TrimSpace(r.Header.Get("X-Session-Token")),
	}
}

// ContentTypeJSON rejects mutating requests whose body is not declared as JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
