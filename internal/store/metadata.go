package store

import (
	"database/sql"
	"time"

	"github.com/pavelanni/picquiz/internal/model"
)

// setImportedFileHash records the content hash of an imported questions file.
func setImportedFileHash(tx *sql.Tx, path, hash string) error {
	now := time.Now()
	_, err := tx.Exec(
		`INSERT INTO imported_files (path, hash, imported_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = ?, imported_at = ?`,
		path, hash, now, hash, now,
	)
	return err
}

// GetImportedFileHash returns the stored hash for a questions file.
// Returns empty string and nil error if the file was never imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// ListImportedFiles returns all imported files, oldest first.
func (s *Store) ListImportedFiles() ([]model.ImportedFile, error) {
	rows, err := s.db.Query(`SELECT path, hash, imported_at FROM imported_files ORDER BY imported_at, path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []model.ImportedFile
	for rows.Next() {
		var f model.ImportedFile
		if err := rows.Scan(&f.Path, &f.Hash, &f.ImportedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
