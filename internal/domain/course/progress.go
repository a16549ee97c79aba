package course

type GenerationStatus string

const (
	GenerationIdle       GenerationStatus = "idle"
	GenerationStarting   GenerationStatus = "starting"
	GenerationProcessing GenerationStatus = "processing"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationFailed     GenerationStatus = "failed"
)

func (s GenerationStatus) Valid() bool {
	switch s {
	case GenerationIdle, GenerationStarting, GenerationProcessing, GenerationCompleted, GenerationFailed:
		return true
	}
	return false
}

// Terminal reports whether the generation job has stopped producing classes.
func (s GenerationStatus) Terminal() bool {
	return s == GenerationCompleted || s == GenerationFailed
}

// GenerationProgress is transient; it is never persisted.
type GenerationProgress struct {
	Status  GenerationStatus `json:"status"`
	Percent int              `json:"percent"`
	Message string           `json:"message,omitempty"`
}
