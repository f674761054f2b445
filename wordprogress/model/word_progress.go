package model

import "time"

// Status the learning stage of a word
type Status string

const (
	StatusNew      Status = "new"
	StatusLearning Status = "learning"
	StatusReview   Status = "review"
	StatusMastered Status = "mastered"

	// DefaultEaseFactor the ease factor of a word seen for the first time
	DefaultEaseFactor = 2.5
	// MinEaseFactor the lowest ease factor a word can drop to
	MinEaseFactor = 1.3
)

// SM2Result the spaced-repetition state of a word after a review
type SM2Result struct {
	EaseFactor  float64
	Interval    int
	Repetitions int
	NextReview  time.Time
}

// LocalWordProgress the device copy of a word's progress. The json names are
// shared with data already stored on devices
type LocalWordProgress struct {
	EaseFactor  float64 `json:"easeFactor"`
	Interval    int     `json:"interval"`
	Repetitions int     `json:"repetitions"`
	NextReview  string  `json:"nextReview"`
	IsSynced    bool    `json:"isSynced"`
	UpdatedAt   string  `json:"updatedAt"`
}
