package model

// Result the outcome of a facade operation. Success is the only failure
// signal; Error is meant for display and logs
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// OK a successful result
func OK() Result {
	return Result{Success: true}
}

// Fail a failed result with the message
func Fail(msg string) Result {
	return Result{Success: false, Error: msg}
}

// ScriptAbility how well the user reads Arabic script
type ScriptAbility string

const (
	ScriptAbilityFluent   ScriptAbility = "fluent"
	ScriptAbilityLearning ScriptAbility = "learning"
)

// Valid returns whether the ability is one of the known values
func (sa ScriptAbility) Valid() bool {
	return sa == ScriptAbilityFluent || sa == ScriptAbilityLearning
}

// LessonProgress a completed lesson row
type LessonProgress struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	LessonID    string `json:"lesson_id"`
	CompletedAt string `json:"completed_at"`
	IsSynced    bool   `json:"is_synced"`
}
