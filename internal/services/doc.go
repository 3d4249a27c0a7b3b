// Package services defines the [Library] and [Catalog] interfaces the replacement engine runs against and implements
// them for Spotify and YouTube Music.
//
// # Service Interface
//
// A [Service] combines a user's [Library] (read playlists, create playlists) with the provider's [Catalog] search.
// Providers never update or delete existing playlists.
//
// # Spotify Implementation
//
// [SpotifyService] wraps github.com/zmb3/spotify/v2. Requests are authorized by an [oauth2.TokenSource] built from
// the tokens saved in the config, so expired access tokens are refreshed transparently.
//
// # YouTube Music Implementation
//
// [YouTubeService] communicates with the FastAPI proxy server wrapping ytmusicapi through [APIService].
// The headers file path is sent via the X-Auth-File header on each request.
//
// # Error Handling
//
// Services translate provider failures into sentinel errors from the shared package:
//   - [shared.ErrUnauthorized] : token missing, expired without refresh, or access denied (401/403)
//   - [shared.ErrSearchFailed] : catalog search failed for any other reason
//   - [shared.ErrCreationFailed] : playlist creation or population failed
//   - [shared.ErrPlaylistNotFound] : playlist ID not found (404)
package services
