package server

import "net/http"

// Middleware decorates a handler, e.g. with request logging or panic recovery.
type Middleware func(http.Handler) http.Handler

// Handler serves a fixed set of paths. [OAuthHandler] answers the Spotify redirect path.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router collects middleware and handlers for the callback server.
//
// Middleware must be added before any handler is registered.
type Router interface {
	http.Handler
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
}
