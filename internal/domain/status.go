package domain

// JobStatus is the lifecycle state shared by generation jobs and downloads.
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ParseJobStatus validates a status received from a client.
func ParseJobStatus(raw string) (JobStatus, error) {
	s := JobStatus(raw)
	if !s.Valid() {
		return "", NewValidationError("status", "must be one of pending, processing, completed, failed", nil)
	}
	return s, nil
}

// DifficultyLevel selects how hard the generated exercises should be
// relative to the requested grade.
type DifficultyLevel string

// Supported difficulty levels
const (
	DifficultyEasier DifficultyLevel = "easier"
	DifficultySame   DifficultyLevel = "same"
	DifficultyHarder DifficultyLevel = "harder"
	DifficultyMixed  DifficultyLevel = "mixed"
)

// DifficultyLevels lists every supported level in presentation order.
var DifficultyLevels = []DifficultyLevel{DifficultyEasier, DifficultySame, DifficultyHarder, DifficultyMixed}

// Valid reports whether d is a supported level.
func (d DifficultyLevel) Valid() bool {
	switch d {
	case DifficultyEasier, DifficultySame, DifficultyHarder, DifficultyMixed:
		return true
	default:
		return false
	}
}

// Label returns the display name used in exported documents.
func (d DifficultyLevel) Label() string {
	switch d {
	case DifficultyEasier:
		return "较易"
	case DifficultySame:
		return "同级"
	case DifficultyHarder:
		return "较难"
	case DifficultyMixed:
		return "混合"
	default:
		return string(d)
	}
}
