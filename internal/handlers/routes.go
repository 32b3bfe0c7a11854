package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions}
	videos := VideoHandler{
		Videos:   deps.Videos,
		Blobs:    deps.Blobs,
		Mirror:   deps.Mirror,
		Sessions: deps.Sessions,
		Limiter:  deps.Limiter,
	}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /auth/signup", auth.SignUp)
	mux.HandleFunc("POST /auth/login", auth.Login)
	mux.HandleFunc("POST /auth/refresh", auth.Refresh)

	mux.HandleFunc("GET /video", videos.List)
	mux.HandleFunc("POST /video", videos.Create)
	mux.HandleFunc("GET /video/{id}", videos.Get)
	mux.HandleFunc("POST /video/{id}/data", videos.UploadData)
	mux.HandleFunc("POST /video/{id}/like", videos.Like)
	mux.HandleFunc("POST /video/{id}/unlike", videos.Unlike)
	mux.HandleFunc("GET /video/{id}/likedby", videos.LikedBy)
	mux.HandleFunc("GET /video/search/findByName", videos.FindByName)
	mux.HandleFunc("GET /video/search/findByDurationLessThan", videos.FindByDurationLessThan)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Videos   VideoStore
	Users    UserStore
	Sessions SessionManager
	Blobs    BlobSink
	Mirror   BlobMirror
	Limiter  RateLimiter
}
