// Package model contains domain types passed between layers.
package model

import "time"

// Landmark is a single observed joint position in normalized image
// coordinates. Z is optional depth (0 when the provider is 2-D only) and
// Confidence is the provider's visibility score in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Confidence float64 `json:"confidence"`
}

// PoseFrame is one sampled video frame worth of landmarks. Frames arrive in
// strictly increasing Index/Timestamp order and are immutable once appended.
type PoseFrame struct {
	Index     int                `json:"index"`
	Timestamp time.Duration      `json:"timestamp"`
	Landmarks map[Joint]Landmark `json:"landmarks"`
}
