package store

import (
	"database/sql"
	"fmt"

	"github.com/pavelanni/picquiz/internal/model"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed question bank.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		answer TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS options (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		UNIQUE (question_id, name),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ImportFile stores every question of a questions file and records the
// file's content hash in one transaction. Either the whole file lands in
// the bank or nothing does.
func (s *Store) ImportFile(path, hash string, questions []model.Question) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, q := range questions {
		if _, err := insertQuestion(tx, q); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	if err := setImportedFileHash(tx, path, hash); err != nil {
		return fmt.Errorf("record hash: %w", err)
	}
	return tx.Commit()
}

// insertQuestion appends q to the end of the quiz sequence. Option IDs from
// the input are ignored.
func insertQuestion(tx *sql.Tx, q model.Question) (int64, error) {
	var next int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(position), 0) + 1 FROM questions`).Scan(&next); err != nil {
		return 0, err
	}

	res, err := tx.Exec(
		`INSERT INTO questions (position, text, answer) VALUES (?, ?, ?)`,
		next, q.Text, q.Answer,
	)
	if err != nil {
		return 0, err
	}
	questionID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, o := range q.Options {
		_, err := tx.Exec(
			`INSERT INTO options (question_id, position, name, image) VALUES (?, ?, ?, ?)`,
			questionID, i, o.Name, o.Image,
		)
		if err != nil {
			return 0, fmt.Errorf("insert option %q: %w", o.Name, err)
		}
	}
	return questionID, nil
}

// ListQuestions returns all questions in quiz order, options in stored order.
func (s *Store) ListQuestions() ([]model.Question, error) {
	rows, err := s.db.Query(`SELECT id, text, answer FROM questions ORDER BY position, id`)
	if err != nil {
		return nil, err
	}
	var questions []model.Question
	index := make(map[int64]int)
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Answer); err != nil {
			rows.Close()
			return nil, err
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	optRows, err := s.db.Query(`SELECT id, question_id, name, image FROM options ORDER BY question_id, position`)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()
	for optRows.Next() {
		var o model.Option
		var questionID int64
		if err := optRows.Scan(&o.ID, &questionID, &o.Name, &o.Image); err != nil {
			return nil, err
		}
		if i, ok := index[questionID]; ok {
			questions[i].Options = append(questions[i].Options, o)
		}
	}
	return questions, optRows.Err()
}

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	var q model.Question
	err := s.db.QueryRow(
		`SELECT id, text, answer FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.Text, &q.Answer)
	if err != nil {
		return q, err
	}

	rows, err := s.db.Query(
		`SELECT id, name, image FROM options WHERE question_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return q, err
	}
	defer rows.Close()
	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.Name, &o.Image); err != nil {
			return q, err
		}
		q.Options = append(q.Options, o)
	}
	return q, rows.Err()
}

// QuestionCount returns the number of questions in the database.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}
