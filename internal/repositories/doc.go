// Package repositories implements SQLite persistence for run history.
//
// Runs are append-only: a finished [tasks.Report] is stored once with its per-playlist outcomes and never updated.
//
// Key Implementations:
//   - [RunRepository] : Run history backing `otv history`, and the [tasks.Recorder] used by the engine
//
// Sequence numbers provide stable, human-readable ordering (run #1, run #2, ...) independent of UUIDs and timestamps.
// [NextSequence] allocates them inside the transaction that inserts the run.
package repositories
