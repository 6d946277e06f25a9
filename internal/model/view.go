package model

type ViewMode string

const (
	ViewDaily   ViewMode = "daily"
	ViewWeekly  ViewMode = "weekly"
	ViewRoutine ViewMode = "routine"
)

// ViewState is the only mutable memory of a card instance. It belongs to a
// single viewer and is discarded when the instance is torn down.
type ViewState struct {
	Mode            ViewMode
	SelectedRoutine *Routine
	SelectedDay     string
	// Notice is shown on the next render and then cleared.
	Notice string
}
