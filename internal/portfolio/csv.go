package portfolio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/danyeu/fx"
)

/*
CSV layout

holdings.csv
currency,amount

history.csv
id,kind,currency,delta_fx,delta_base,rate,created_at

Notes:
- holdings rows are kept in display order, base first
- amounts use the fixed-point text form, deltas may carry a leading '-'
- rate is empty for the start entry
- created_at = RFC3339Nano
- Every mutation rewrites both files atomically through a temp file.
*/

const tsLayout = time.RFC3339Nano

var (
	holdingsHeader = []string{"currency", "amount"}
	historyHeader  = []string{"id", "kind", "currency", "delta_fx", "delta_base", "rate", "created_at"}
)

// CSV is a Store backed by two CSV files in a directory.
type CSV struct {
	holdingsPath string
	historyPath  string

	mu  sync.RWMutex
	l   *ledger
	now func() time.Time
}

// NewCSV opens the store in dir, creating the directory if needed.
// A directory without holdings.csv yields an uninitialized store.
func NewCSV(dir string) (*CSV, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &CSV{
		holdingsPath: filepath.Join(dir, "holdings.csv"),
		historyPath:  filepath.Join(dir, "history.csv"),
		now:          time.Now,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CSV) load() error {
	holdingRows, err := readCSV(s.holdingsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	historyRows, err := readCSV(s.historyPath)
	if err != nil {
		return err
	}

	l := &ledger{holdings: make(map[fx.Currency]fx.Amount)}
	for i, row := range holdingRows {
		if len(row) != len(holdingsHeader) {
			return fmt.Errorf("%s line %d: want %d fields, got %d", s.holdingsPath, i+2, len(holdingsHeader), len(row))
		}
		curr, err := fx.ParseCurr(row[0])
		if err != nil {
			return fmt.Errorf("%s line %d: %w", s.holdingsPath, i+2, err)
		}
		var amount fx.Amount
		if err := amount.UnmarshalText([]byte(row[1])); err != nil {
			return fmt.Errorf("%s line %d: %w", s.holdingsPath, i+2, err)
		}
		l.order = append(l.order, curr)
		l.holdings[curr] = amount
	}
	if len(l.order) == 0 {
		return fmt.Errorf("%s: no holdings", s.holdingsPath)
	}
	l.base = l.order[0]

	for i, row := range historyRows {
		e, err := decodeEntry(row)
		if err != nil {
			return fmt.Errorf("%s line %d: %w", s.historyPath, i+2, err)
		}
		l.history = append(l.history, e)
	}
	s.l = l
	return nil
}

func decodeEntry(row []string) (Entry, error) {
	if len(row) != len(historyHeader) {
		return Entry{}, fmt.Errorf("want %d fields, got %d", len(historyHeader), len(row))
	}
	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid id: %w", err)
	}
	createdAt, err := time.Parse(tsLayout, row[6])
	if err != nil {
		return Entry{}, fmt.Errorf("invalid created_at: %w", err)
	}
	e, err := decodeEntryFields(row[1], row[2], row[3], row[4], row[5])
	if err != nil {
		return Entry{}, err
	}
	e.ID = id
	e.CreatedAt = createdAt
	return e, nil
}

// decodeEntryFields parses the text columns shared by the CSV and Postgres
// history layouts.
func decodeEntryFields(kind, code, deltaFX, deltaBase, rate string) (Entry, error) {
	e := Entry{Kind: Kind(kind)}
	if !e.Kind.Valid() {
		return Entry{}, fmt.Errorf("invalid kind %q", kind)
	}
	var err error
	if e.Currency, err = fx.ParseCurr(code); err != nil {
		return Entry{}, err
	}
	if err := e.DeltaFX.UnmarshalText([]byte(deltaFX)); err != nil {
		return Entry{}, err
	}
	if err := e.DeltaBase.UnmarshalText([]byte(deltaBase)); err != nil {
		return Entry{}, err
	}
	if rate != "" {
		r, err := fx.ParseRate(rate)
		if err != nil {
			return Entry{}, err
		}
		e.Rate = &r
	}
	return e, nil
}

func encodeEntry(e Entry) []string {
	rate := ""
	if e.Rate != nil {
		rate = e.Rate.String()
	}
	return []string{
		strconv.FormatInt(e.ID, 10),
		string(e.Kind),
		e.Currency.Code(),
		e.DeltaFX.String(),
		e.DeltaBase.String(),
		rate,
		e.CreatedAt.Format(tsLayout),
	}
}

// saveLocked writes l to disk. The caller holds s.mu.
func (s *CSV) saveLocked(l *ledger) error {
	holdings := make([][]string, 0, len(l.order)+1)
	holdings = append(holdings, holdingsHeader)
	for _, h := range l.snapshot() {
		holdings = append(holdings, []string{h.Currency.Code(), h.Amount.String()})
	}
	history := make([][]string, 0, len(l.history)+1)
	history = append(history, historyHeader)
	for _, e := range l.history {
		history = append(history, encodeEntry(e))
	}
	if err := atomicWriteCSV(s.historyPath, history); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := atomicWriteCSV(s.holdingsPath, holdings); err != nil {
		return fmt.Errorf("failed to write holdings: %w", err)
	}
	return nil
}

func (s *CSV) Initialized(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.l != nil, nil
}

func (s *CSV) Reset(_ context.Context, o Opening) error {
	l, err := newLedger(o, s.now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveLocked(l); err != nil {
		return err
	}
	s.l = l
	return nil
}

func (s *CSV) Holdings(_ context.Context) ([]Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.l == nil {
		return nil, ErrNotInitialized
	}
	return s.l.snapshot(), nil
}

func (s *CSV) Holding(_ context.Context, curr fx.Currency) (fx.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.l == nil {
		return fx.Amount{}, ErrNotInitialized
	}
	return s.l.holding(curr)
}

// Apply updates a copy of the ledger and only keeps it once both files
// are written.
func (s *CSV) Apply(_ context.Context, t Trade) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.l == nil {
		return Entry{}, ErrNotInitialized
	}
	next := s.l.clone()
	e, err := next.apply(t, s.now())
	if err != nil {
		return Entry{}, err
	}
	if err := s.saveLocked(next); err != nil {
		return Entry{}, err
	}
	s.l = next
	return e, nil
}

func (s *CSV) History(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.l == nil {
		return nil, ErrNotInitialized
	}
	return s.l.entries(), nil
}

// readCSV returns the rows of path without the header.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

func atomicWriteCSV(path string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "tmp-*.csv")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
