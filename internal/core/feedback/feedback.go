// Package feedback persists reviewer judgments and reconciles them into
// training labels for the retrain cascade.
package feedback

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/agenthands/comprank/internal/core/training"
	"github.com/agenthands/comprank/internal/geo"
)

// Record is one reviewer judgment on a ranked candidate. Agree means the
// reviewer considers the candidate a valid comp regardless of its original
// heuristic label.
type Record struct {
	OrderID          string
	CandidateAddress string
	SubjectAddress   string
	Score            float64
	OriginalLabel    int
	Agree            bool
}

func (r *Record) key() string {
	return r.OrderID + "|" + geo.NormalizeAddress(r.CandidateAddress)
}

// Log is the merged feedback state. Resubmission under the same (orderID,
// normalized address) key replaces the earlier record in place, so file
// order reflects first submission order.
type Log struct {
	records []Record
	index   map[string]int
}

func NewLog() *Log {
	return &Log{index: make(map[string]int)}
}

// LoadLog reads the feedback artifact. A missing file is an empty log.
func LoadLog(path string) (*Log, error) {
	l := NewLog()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback log '%s': %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback log '%s': %w", path, err)
	}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) != len(feedbackHeader) {
			return nil, fmt.Errorf("feedback row has %d columns, want %d", len(row), len(feedbackHeader))
		}
		rec := Record{
			OrderID:          row[0],
			CandidateAddress: row[1],
			SubjectAddress:   row[2],
		}
		rec.Score, _ = strconv.ParseFloat(row[3], 64)
		rec.OriginalLabel, _ = strconv.Atoi(row[4])
		rec.Agree = row[5] == "1"
		l.Merge(rec)
	}
	return l, nil
}

// Merge applies one judgment with last-write-wins semantics.
func (l *Log) Merge(rec Record) {
	key := rec.key()
	if i, ok := l.index[key]; ok {
		l.records[i] = rec
		return
	}
	l.index[key] = len(l.records)
	l.records = append(l.records, rec)
}

func (l *Log) Len() int { return len(l.records) }

// Records returns the merged judgments in first-submission order.
func (l *Log) Records() []Record {
	return append([]Record(nil), l.records...)
}

var feedbackHeader = []string{
	"orderID", "candidate_address", "subject_address", "score", "is_comp", "agree",
}

// Save writes the merged log as CSV.
func (l *Log) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create feedback log '%s': %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(feedbackHeader); err != nil {
		return err
	}
	for i := range l.records {
		rec := &l.records[i]
		agree := "0"
		if rec.Agree {
			agree = "1"
		}
		row := []string{
			rec.OrderID,
			rec.CandidateAddress,
			rec.SubjectAddress,
			strconv.FormatFloat(rec.Score, 'f', 6, 64),
			strconv.Itoa(rec.OriginalLabel),
			agree,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Apply left-joins the log onto training rows by (orderID, normalized
// candidate address). Agreement forces the label to 1. Disagreement on a
// row that was already a negative drops the row; disagreement on a
// positive flips it to 0.
func (l *Log) Apply(rows []training.Row) []training.Row {
	out := make([]training.Row, 0, len(rows))
	for i := range rows {
		row := rows[i]
		key := row.OrderID + "|" + geo.NormalizeAddress(row.CandidateAddress)
		idx, ok := l.index[key]
		if !ok {
			out = append(out, row)
			continue
		}
		rec := &l.records[idx]
		if rec.Agree {
			row.Label = 1
		} else {
			if row.Label == 0 {
				continue
			}
			row.Label = 0
		}
		out = append(out, row)
	}
	return out
}
