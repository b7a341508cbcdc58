// Package middleware provides HTTP middlewares for client identity and logging.
package middleware

import (
	"context"
	"net/http"
)

type ctxKey string

const clientKey ctxKey = "client"

// ClientIdentity stores the Common Name of a verified client certificate in
// the request context. With required set, requests without a certificate are
// rejected with 401.
func ClientIdentity(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
				if required {
					http.Error(w, "no client certificate provided", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			cert := r.TLS.PeerCertificates[0]
			ctx := context.WithValue(r.Context(), clientKey, cert.Subject.CommonName)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientFromContext returns the client certificate Common Name, or "" if none.
func ClientFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(clientKey).(string); ok {
		return s
	}
	return ""
}
