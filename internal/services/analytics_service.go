package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/soaringjerry/mindbridge/internal/assessment"
)

type AnalyticsService struct {
	store HistoryReader
}

type ScorePoint struct {
	Date    string  `json:"date"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Max     int     `json:"max"`
}

type SeverityCount struct {
	Severity assessment.Severity `json:"severity"`
	Count    int                 `json:"count"`
}

// Direction compares the two most recent assessments. Lower scores are better.
type Direction string

const (
	DirectionNone      Direction = ""
	DirectionImproving Direction = "improving"
	DirectionStable    Direction = "stable"
	DirectionWorsening Direction = "worsening"
)

type UserSummary struct {
	AssessmentCount int               `json:"assessment_count"`
	Latest          *AssessmentRecord `json:"latest,omitempty"`
	ScoreDirection  Direction         `json:"score_direction,omitempty"`
	Timeseries      []ScorePoint      `json:"timeseries"`
	Severities      []SeverityCount   `json:"severities"`
	MoodCount       int               `json:"mood_count"`
	MoodAverage     float64           `json:"mood_average"`
	LatestMood      *MoodEntry        `json:"latest_mood,omitempty"`
}

func NewAnalyticsService(store HistoryReader) *AnalyticsService {
	return &AnalyticsService{store: store}
}

func (s *AnalyticsService) Summary(ctx context.Context, userID string) (*UserSummary, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	records, err := s.store.ListAssessments(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	moods, err := s.store.ListMoods(ctx, userID, time.Time{}, 0)
	if err != nil {
		return nil, err
	}
	out := &UserSummary{
		AssessmentCount: len(records),
		Timeseries:      buildScoreTimeseries(records),
		Severities:      buildSeverityHistogram(records),
		MoodCount:       len(moods),
	}
	if len(records) > 0 {
		latest := records[0]
		out.Latest = &latest
	}
	if len(records) > 1 {
		out.ScoreDirection = compareScores(records[0].Score, records[1].Score)
	}
	if len(moods) > 0 {
		latest := moods[0]
		out.LatestMood = &latest
		sum := 0
		for _, m := range moods {
			sum += m.Value
		}
		out.MoodAverage = roundTo(float64(sum)/float64(len(moods)), 2)
	}
	return out, nil
}

func compareScores(latest, previous int) Direction {
	switch {
	case latest < previous:
		return DirectionImproving
	case latest > previous:
		return DirectionWorsening
	default:
		return DirectionStable
	}
}

func buildScoreTimeseries(records []AssessmentRecord) []ScorePoint {
	type agg struct{ count, sum, max int }
	byDay := map[string]*agg{}
	for _, r := range records {
		day := r.CreatedAt.UTC().Format("2006-01-02")
		a := byDay[day]
		if a == nil {
			a = &agg{}
			byDay[day] = a
		}
		a.count++
		a.sum += r.Score
		if r.Score > a.max {
			a.max = r.Score
		}
	}
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]ScorePoint, 0, len(days))
	for _, d := range days {
		a := byDay[d]
		out = append(out, ScorePoint{Date: d, Count: a.count, Average: roundTo(float64(a.sum)/float64(a.count), 2), Max: a.max})
	}
	return out
}

// buildSeverityHistogram lists every band, least severe first, including
// empty ones.
func buildSeverityHistogram(records []AssessmentRecord) []SeverityCount {
	bands := []assessment.Severity{
		assessment.SeverityNoneMinimal,
		assessment.SeverityMild,
		assessment.SeverityModerate,
		assessment.SeverityModeratelySevere,
		assessment.SeveritySevere,
	}
	out := make([]SeverityCount, len(bands))
	for i, b := range bands {
		out[i].Severity = b
	}
	for _, r := range records {
		if rank := r.Severity.Rank(); rank >= 0 {
			out[rank].Count++
		}
	}
	return out
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
