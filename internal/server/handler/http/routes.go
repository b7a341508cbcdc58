package http

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/atinyakov/formrelay/internal/middleware"
)

// NewRouter constructs and returns the stub endpoint's HTTP handler.
//
// Routes:
//
//	POST    /exec         → stub.Exec (readable only by allowedOrigins)
//	GET     /exec         → stub.Exec (readable by any origin)
//	GET     /deliveries   → stub.Deliveries
//	DELETE  /deliveries   → stub.Forget
//
// A POST from a disallowed origin is still handled and recorded; its reply
// just lacks Access-Control-Allow-Origin, as a browser would see it.
func NewRouter(stub *StubHandler, allowedOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	postCORS := cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
		AllowedMethods: []string{http.MethodPost},
		AllowedHeaders: []string{"Content-Type", middleware.SubmissionIDHeader},
	})
	getCORS := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	})

	r.Route("/exec", func(r chi.Router) {
		r.With(postCORS.Handler).Post("/", stub.Exec)
		r.With(postCORS.Handler).Options("/", func(w http.ResponseWriter, r *http.Request) {})
		r.With(getCORS.Handler).Get("/", stub.Exec)
	})

	r.Route("/deliveries", func(r chi.Router) {
		r.Get("/", stub.Deliveries)
		r.Delete("/", stub.Forget)
	})

	return r
}
