// Package server runs the local HTTP callback server used by the Spotify authorization flow.
//
// # Router Infrastructure
//
// [ChiRouter] is the only [Router]. It registers routes on a chi mux, which answers unknown paths with 404 and
// wrong methods with 405. [Middleware] is applied when a route is registered, outermost first.
//
// # OAuth Callback Handler
//
// [OAuthHandler] checks the state parameter, exchanges the authorization code for a token and hands the
// result to whoever waits on it. Only the first callback is processed; later ones get 400.
//
// # Callback Server
//
// `otv auth spotify` and the access-required flow of `otv tui` start a [CallbackServer] on the configured
// host and port, open the authorization URL in a browser and block in [CallbackServer.Wait] until the
// callback arrives, the timeout expires or the context is cancelled. The server shuts down afterwards.
package server
