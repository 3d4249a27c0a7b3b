// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through a single replacement run:
//  1. [ScanView] : Authorize and scan the library for songs to replace
//  2. [ReviewView] : Browse the affected playlists and songs
//  3. [ConfirmView] : Confirm before new playlists are created
//  4. [ProgressView] : Follow lookups and playlist creation as they happen
//  5. [ResultView] : Show the run summary and the songs without a Taylor's Version
//
// [AccessRequiredView] is shown whenever the streaming service rejects the stored credentials.
//
// Engine calls run in the background and report through a progress channel; each one is a job whose messages are
// dropped once a newer job replaces it.
package ui
