package state

import "context"

// Prune trims the run history to maxRows, dropping the oldest rows.
// Returns the number of rows removed.
func (s *Store) Prune(_ context.Context, maxRows int) (int, error) {
	if maxRows <= 0 {
		return 0, nil
	}

	result, err := s.db.Exec(`
		DELETE FROM runs
		WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)
	`, maxRows)
	if err != nil {
		return 0, err
	}

	n, err := result.RowsAffected()
	return int(n), err
}
