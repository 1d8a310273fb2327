// Package bank serves the question source: a SQLite question bank seeded
// from JSON files and exposed as GET /questions.
package bank

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/pavelanni/picquiz/internal/loader"
	"github.com/pavelanni/picquiz/internal/model"
	"github.com/pavelanni/picquiz/internal/store"
)

// Import loads question files into the bank in order. A file is imported
// once: an unchanged file is skipped, and a file that changed since its
// import is skipped with a warning so the quiz order stays stable. Records
// that fail validation are logged and left out. Each file is stored in a
// single transaction, so a failed file leaves no partial import behind and
// is retried whole on the next run. It returns the number of questions
// inserted.
func Import(db *store.Store, paths []string) (int, error) {
	total := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return total, fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return total, fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash {
			slog.Info("questions file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("questions file changed since last import, skipping to keep the quiz order stable",
				"path", path)
			continue
		}

		var records []model.Question
		if err := json.Unmarshal(data, &records); err != nil {
			return total, fmt.Errorf("parse %s: %w", path, err)
		}

		questions, rejected := loader.Validate(records)
		for _, re := range rejected {
			slog.Warn("skipping invalid question", "path", path, "index", re.Index, "reason", re.Reason)
		}

		if err := db.ImportFile(path, hash, questions); err != nil {
			return total, fmt.Errorf("import %s: %w", path, err)
		}
		total += len(questions)
		slog.Info("imported questions", "path", path, "count", len(questions), "rejected", len(rejected))
	}
	return total, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
