package domain

// Status is the processing state of a transcript.
type Status string

const (
	StatusUploaded  Status = "uploaded"
	StatusAnalyzing Status = "analyzing"
	StatusCompiling Status = "compiling"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var transitions = map[Status][]Status{
	StatusUploaded:  {StatusAnalyzing},
	StatusAnalyzing: {StatusCompiling, StatusFailed},
	StatusCompiling: {StatusCompleted, StatusFailed},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUploaded, StatusAnalyzing, StatusCompiling, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no forward transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// InFlight reports whether an analysis currently owns the transcript.
func (s Status) InFlight() bool {
	return s == StatusAnalyzing || s == StatusCompiling
}

// CanTransition reports whether from -> to is a legal forward move. The only
// backward move (to uploaded for re-analysis) is not part of this table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusChangedActivity names the activity written when entering s.
func StatusChangedActivity(s Status) string {
	return "status_changed_to_" + string(s)
}
