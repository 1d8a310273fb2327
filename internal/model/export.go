package model

import "time"

// BankExport is the top-level JSON structure for a question bank export.
type BankExport struct {
	ExportedAt   time.Time      `json:"exported_at"`
	NumQuestions int            `json:"num_questions"`
	Sources      []ImportedFile `json:"sources"`
	Questions    []Question     `json:"questions"`
}

// ImportedFile records a questions file that was loaded into the bank.
type ImportedFile struct {
	Path       string    `json:"path"`
	Hash       string    `json:"hash"`
	ImportedAt time.Time `json:"imported_at"`
}
