package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"pairchat/internal/observability"
)

func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			defer func() {
				if rec := recover(); rec != nil {
					log := observability.GetLogger(r.Context())
					log.Error("panic_recovered",
						zap.Any("error", rec),
						zap.String("path", r.URL.Path),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"internal_error","message":"internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
