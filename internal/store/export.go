package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/picquiz/internal/model"
)

// ExportBank builds an export-ready snapshot of the question bank.
func (s *Store) ExportBank() (model.BankExport, error) {
	questions, err := s.ListQuestions()
	if err != nil {
		return model.BankExport{}, fmt.Errorf("list questions: %w", err)
	}
	files, err := s.ListImportedFiles()
	if err != nil {
		return model.BankExport{}, fmt.Errorf("list imported files: %w", err)
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return model.BankExport{
		ExportedAt:   time.Now().UTC(),
		NumQuestions: len(questions),
		Sources:      files,
		Questions:    questions,
	}, nil
}
