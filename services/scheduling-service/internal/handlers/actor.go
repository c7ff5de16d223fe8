package handlers

import (
	"net/http"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/auth"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/activity"
)

// WithActor names the verified caller in activity messages. It must run inside
// auth.RequireAuth; without claims the actor stays the default.
func WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
			r = r.WithContext(activity.WithActor(r.Context(), claims.Actor()))
		}
		next.ServeHTTP(w, r)
	})
}
