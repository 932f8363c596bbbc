package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinMood        = 1
	MaxMood        = 5
	MaxMoodNoteLen = 1000
)

var moodLabels = [...]string{"Awful", "Bad", "Okay", "Good", "Great"}

// MoodLabel names a mood value; out-of-scale values yield "".
func MoodLabel(v int) string {
	if v < MinMood || v > MaxMood {
		return ""
	}
	return moodLabels[v-MinMood]
}

type MoodStore interface {
	AccountReader
	AddMood(ctx context.Context, m *MoodEntry) error
	ListMoods(ctx context.Context, userID string, since time.Time, limit int) ([]MoodEntry, error)
}

type MoodService struct {
	store MoodStore
	now   func() time.Time
	idGen func(prefix string, n int) string
}

func NewMoodService(store MoodStore) *MoodService {
	return &MoodService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: newID,
	}
}

func (s *MoodService) Log(ctx context.Context, userID string, value int, note string) (*MoodEntry, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	if value < MinMood || value > MaxMood {
		return nil, NewInvalidError(fmt.Sprintf("mood must be between %d and %d", MinMood, MaxMood))
	}
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > MaxMoodNoteLen {
		return nil, NewInvalidError("note too long")
	}
	if err := requireAccount(ctx, s.store, userID); err != nil {
		return nil, err
	}
	m := &MoodEntry{ID: s.idGen("m", 16), UserID: userID, Value: value, Note: note, CreatedAt: s.now()}
	if err := s.store.AddMood(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MoodService) List(ctx context.Context, userID string, limit int) ([]MoodEntry, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	ms, err := s.store.ListMoods(ctx, userID, time.Time{}, limit)
	if err != nil {
		return nil, err
	}
	return nonNil(ms), nil
}

type TrendPoint struct {
	Date    string  `json:"date"`
	Label   string  `json:"label"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// WeeklyTrend buckets the last seven days, ending with the day of now, in
// now's location. Days without entries have Count 0 and Average 0.
func (s *MoodService) WeeklyTrend(ctx context.Context, userID string, now time.Time) ([]TrendPoint, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	y, mo, d := now.Date()
	today := time.Date(y, mo, d, 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -6)
	ms, err := s.store.ListMoods(ctx, userID, start, 0)
	if err != nil {
		return nil, err
	}
	points := make([]TrendPoint, 7)
	index := make(map[string]int, 7)
	for i := range points {
		day := start.AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		points[i] = TrendPoint{Date: key, Label: day.Format("Mon")}
		index[key] = i
	}
	sums := make([]int, 7)
	for _, m := range ms {
		i, ok := index[m.CreatedAt.In(now.Location()).Format("2006-01-02")]
		if !ok {
			continue
		}
		sums[i] += m.Value
		points[i].Count++
	}
	for i := range points {
		if points[i].Count > 0 {
			points[i].Average = roundTo(float64(sums[i])/float64(points[i].Count), 2)
		}
	}
	return points, nil
}
