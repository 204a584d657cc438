package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Config holds the local persistence settings.
type Config struct {
	DBPath string `envconfig:"HISTORY_DB_PATH" default:"data/cotizador.db"`
}

// Entry is one issued proforma as recorded locally. The PDF itself lives
// on the backend; this is the operator-facing log.
type Entry struct {
	ID          int64   `json:"id"`
	Number      string  `json:"number"`
	PDFURL      string  `json:"pdfUrl"`
	Client      string  `json:"client"`
	Currency    string  `json:"currency"`
	TaxPercent  float64 `json:"taxPercent"`
	LineCount   int     `json:"lineCount"`
	PricedTotal float64 `json:"pricedTotal"`
	IssuedBy    string  `json:"issuedBy,omitempty"`
	IssuedAt    string  `json:"issuedAt"`
}

type Store struct {
	conn *sql.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := &Store{conn: conn}
	if err := s.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS proformas (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  numero TEXT NOT NULL UNIQUE,
  pdfUrl TEXT NOT NULL,
  client TEXT NOT NULL,
  currency TEXT NOT NULL,
  taxPercent REAL NOT NULL,
  lineCount INTEGER NOT NULL,
  pricedTotal REAL NOT NULL,
  issuedBy TEXT,
  issuedAt TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_proformas_issuedAt ON proformas(issuedAt);
`
	_, err := s.conn.Exec(schema)
	return err
}

// Record stores an issued proforma. Regenerating under the same number
// replaces the earlier entry.
func (s *Store) Record(e Entry) error {
	issuedAt := e.IssuedAt
	if issuedAt == "" {
		issuedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.conn.Exec(`
INSERT INTO proformas (numero, pdfUrl, client, currency, taxPercent, lineCount, pricedTotal, issuedBy, issuedAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(numero) DO UPDATE SET
  pdfUrl = excluded.pdfUrl,
  client = excluded.client,
  currency = excluded.currency,
  taxPercent = excluded.taxPercent,
  lineCount = excluded.lineCount,
  pricedTotal = excluded.pricedTotal,
  issuedBy = excluded.issuedBy,
  issuedAt = excluded.issuedAt;`,
		e.Number, e.PDFURL, e.Client, e.Currency, e.TaxPercent, e.LineCount, e.PricedTotal, e.IssuedBy, issuedAt)
	return err
}

// List returns the most recently issued proformas, newest first.
func (s *Store) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.Query(`
SELECT id, numero, pdfUrl, client, currency, taxPercent, lineCount, pricedTotal, COALESCE(issuedBy, ''), issuedAt
FROM proformas
ORDER BY issuedAt DESC, id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Number, &e.PDFURL, &e.Client, &e.Currency, &e.TaxPercent, &e.LineCount, &e.PricedTotal, &e.IssuedBy, &e.IssuedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
