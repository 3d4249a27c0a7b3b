// Package models defines the domain entities shared by the otv packages.
//
// The package contains two categories of types:
//
// 1. Snapshots read from a streaming service during a run
//   - [Track] : Song metadata; the ID is opaque and scoped to the service that produced it
//   - [Playlist] : Ordered playlist with its tracks
//   - [PlaylistHandle] : Playlist returned by creation
//
// 2. Persistent Entities: Database-backed records of finished runs
//   - [Run] : Counters and final state of a batch run
//   - [RunPlaylist] : Per-playlist outcome of a run
//
// Persistent entities implement the Model interface. The Repository[T] interface defines the data access
// operations the run history needs.
package models
