// Package wakeword scores incoming audio frames and runs the arming state
// machine that decides when to capture a command.
package wakeword

// Detector scores one audio frame per configured wake word. Scores are
// confidences in [0, 1]. Called only from the single audio thread.
type Detector interface {
	Score(frame []int16) (map[string]float32, error)
}
