package canvas

import "time"

// Config tunes the interaction layer
type Config struct {
	MinZoom         float64
	MaxZoom         float64
	ZoomSensitivity float64
	// WheelSensitivity is the exponent base per wheel pixel
	WheelSensitivity float64
	// ZoomStep is the keyboard zoom multiplier
	ZoomStep float64
	// AnimateMaxZoom caps animated zoom-to requests
	AnimateMaxZoom float64

	LongPress time.Duration
	// MoveThreshold is how far a touch may wander before it becomes a pan
	MoveThreshold float64
	// ClickThreshold separates a box-select click from a drag
	ClickThreshold float64
	// PortRadius is the screen distance within which a press grabs a port
	PortRadius float64
	// SnapRadius is the screen distance within which a port arms as a target
	SnapRadius float64

	// HeaderScaleMin and HeaderScaleMax bound the adaptive header scale
	// shared by port anchors and header rendering
	HeaderScaleMin float64
	HeaderScaleMax float64

	FitPadding float64
	FitMinZoom float64
	FitMaxZoom float64

	ZoomDuration time.Duration
	PanDuration  time.Duration
	FitDuration  time.Duration
}

// DefaultConfig returns the stock interaction tuning
func DefaultConfig() Config {
	return Config{
		MinZoom:          0.1,
		MaxZoom:          10,
		ZoomSensitivity:  1.0,
		WheelSensitivity: 0.006,
		ZoomStep:         1.6,
		AnimateMaxZoom:   5,
		LongPress:        600 * time.Millisecond,
		MoveThreshold:    10,
		ClickThreshold:   5,
		PortRadius:       8,
		SnapRadius:       16,
		HeaderScaleMin:   0.4,
		HeaderScaleMax:   2.5,
		FitPadding:       100,
		FitMinZoom:       0.2,
		FitMaxZoom:       2,
		ZoomDuration:     250 * time.Millisecond,
		PanDuration:      300 * time.Millisecond,
		FitDuration:      350 * time.Millisecond,
	}
}
