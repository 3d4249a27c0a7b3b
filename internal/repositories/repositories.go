package repositories

import (
	"database/sql"
	"fmt"
)

// NextSequence allocates the next sequence number for the entity id in table, within tx.
//
// Sequence numbers provide human-readable ordering for runs (e.g. run #42). The sequence table keeps one row per
// entity with an AUTOINCREMENT key, so numbers are never reused even after rows are deleted.
func NextSequence(tx *sql.Tx, table, id string) (int64, error) {
	sequenceTable := table + "_sequence"

	result, err := tx.Exec(fmt.Sprintf("INSERT INTO %s (run_id) VALUES (?)", sequenceTable), id)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	sequence, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}
	return sequence, nil
}
