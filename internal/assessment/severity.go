package assessment

// Severity is one of the ordered PHQ-9 depression severity bands.
type Severity string

const (
	SeverityNoneMinimal      Severity = "None-minimal"
	SeverityMild             Severity = "Mild"
	SeverityModerate         Severity = "Moderate"
	SeverityModeratelySevere Severity = "Moderately Severe"
	SeveritySevere           Severity = "Severe"
)

var severityRank = map[Severity]int{
	SeverityNoneMinimal:      0,
	SeverityMild:             1,
	SeverityModerate:         2,
	SeverityModeratelySevere: 3,
	SeveritySevere:           4,
}

// Rank orders severities from least (0) to most severe. Unknown values rank -1.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// Valid reports whether s is one of the known bands.
func (s Severity) Valid() bool { return s.Rank() >= 0 }

// Interpretation is the advisory sentence shown next to a result.
func (s Severity) Interpretation() string {
	switch s {
	case SeverityNoneMinimal:
		return "Your responses suggest you're doing well, with few or no symptoms of depression. Keep practicing good self-care!"
	case SeverityMild:
		return "You may be experiencing some mild symptoms. It might be helpful to monitor your mood and practice stress-reduction techniques."
	case SeverityModerate:
		return "Your responses suggest moderate symptoms. Consider reaching out to a counselor or using our self-help resources to manage these feelings."
	case SeverityModeratelySevere, SeveritySevere:
		return "Your responses indicate significant symptoms. We strongly recommend speaking with a mental health professional for support."
	default:
		return ""
	}
}

// Classify maps a PHQ-9 total onto its severity band.
func Classify(total int) Severity {
	return phq9.Classify(total)
}

// ActionSignal is advisory metadata for the presentation layer. It carries no
// clinical guarantee.
type ActionSignal string

const (
	NoActionNeeded       ActionSignal = "no_action_needed"
	SuggestSelfHelp      ActionSignal = "suggest_self_help"
	SuggestCounseling    ActionSignal = "suggest_counseling"
	SuggestUrgentSupport ActionSignal = "suggest_urgent_support"
)

// RecommendedAction maps a severity onto its follow-up signal.
func RecommendedAction(s Severity) ActionSignal {
	switch s {
	case SeverityMild:
		return SuggestSelfHelp
	case SeverityModerate:
		return SuggestCounseling
	case SeverityModeratelySevere, SeveritySevere:
		return SuggestUrgentSupport
	default:
		return NoActionNeeded
	}
}

// SurfaceCrisisSupport reports whether the crisis-support directory should be
// offered alongside the result.
func (a ActionSignal) SurfaceCrisisSupport() bool {
	return a == SuggestCounseling || a == SuggestUrgentSupport
}
