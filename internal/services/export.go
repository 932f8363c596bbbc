package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"strings"
	"time"
)

var (
	assessmentCSVHeader = []string{"id", "type", "score", "severity", "action", "answers", "created_at"}
	moodCSVHeader       = []string{"id", "value", "label", "note", "created_at"}
)

// ExportAssessmentsCSV renders one row per assessment; answers are joined
// with ';' in question order.
func ExportAssessmentsCSV(records []AssessmentRecord) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write(assessmentCSVHeader)
	for _, r := range records {
		answers := make([]string, len(r.Answers))
		for i, a := range r.Answers {
			answers[i] = strconv.Itoa(a)
		}
		rec := []string{
			r.ID,
			r.Type,
			strconv.Itoa(r.Score),
			string(r.Severity),
			string(r.Action),
			strings.Join(answers, ";"),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func ExportMoodsCSV(moods []MoodEntry) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write(moodCSVHeader)
	for _, m := range moods {
		rec := []string{
			m.ID,
			strconv.Itoa(m.Value),
			m.Label(),
			sanitizeCSVCell(m.Note),
			m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// sanitizeCSVCell neutralises spreadsheet formula prefixes in free text.
func sanitizeCSVCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}

type ExportService struct {
	store HistoryReader
}

func NewExportService(store HistoryReader) *ExportService {
	return &ExportService{store: store}
}

func (s *ExportService) AssessmentsCSV(ctx context.Context, userID string) ([]byte, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	rs, err := s.store.ListAssessments(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	return ExportAssessmentsCSV(rs)
}

func (s *ExportService) MoodsCSV(ctx context.Context, userID string) ([]byte, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	ms, err := s.store.ListMoods(ctx, userID, time.Time{}, 0)
	if err != nil {
		return nil, err
	}
	return ExportMoodsCSV(ms)
}
