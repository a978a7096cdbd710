package domain

import "time"

// ModelType identifies which external model produced a result. It is recorded
// for routing and history; the pipeline itself does not branch on it.
type ModelType string

const (
	ModelInteriorDesign     ModelType = "interior_design"
	ModelExteriorDesign     ModelType = "exterior_design"
	ModelImageEnhancement   ModelType = "image_enhancement"
	ModelElementReplacement ModelType = "element_replacement"
	ModelVideoMotion        ModelType = "video_motion"
)

// Valid reports whether t is a known model type.
func (t ModelType) Valid() bool {
	switch t {
	case ModelInteriorDesign, ModelExteriorDesign, ModelImageEnhancement,
		ModelElementReplacement, ModelVideoMotion:
		return true
	}
	return false
}

// GenerationStatus enumerates generation lifecycle states. Transitions are
// monotonic: processing moves to exactly one of completed or failed.
type GenerationStatus string

const (
	StatusProcessing GenerationStatus = "processing"
	StatusCompleted  GenerationStatus = "completed"
	StatusFailed     GenerationStatus = "failed"
)

// Generation is the durable record tracking one generation request from
// staging through its terminal state.
type Generation struct {
	ID               string
	UserID           string
	ModelType        ModelType
	Status           GenerationStatus
	InputKey         string
	InputURL         string
	OutputKey        string
	OutputURL        string
	Prompt           string
	ErrorMessage     string
	ProcessingTimeMs int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
