// Package tasks replaces re-released tracks across a user's playlists with progress reporting.
//
// # Pipeline
//
// A run moves through fixed phases, never backwards:
//
//  1. Authorizing : [services.Service.Authorize] must succeed before anything is read
//  2. Scanning : every playlist is loaded once and its tracks classified by the [Classifier]
//  3. Resolving : each unique candidate is searched once by the [Resolver], in parallel, into a per-run cache
//  4. Transforming : every affected playlist is rebuilt with [Transform] and created as a new playlist
//  5. Reporting : counters are finalized into the [Report]
//
// Unauthorized and Cancelled are the terminal alternatives to Done.
//
// # Progress Reporting
//
// [PlaylistEngine] sends [ProgressUpdate] values on a caller-owned channel with select/default so a slow consumer never
// blocks the run. The only input from the consumer is cancelling the context.
//
// # Run History
//
// The optional [Recorder] persists the finished [Report] (repositories.RunRepository). Recording failures are logged
// and never fail the run.
package tasks
