package memory

import (
	"github.com/narrinai/companion/store"
)

// EmotionalSignal is the coarse per-turn emotional direction used for the
// relationship running average.
type EmotionalSignal string

const (
	SignalPositive EmotionalSignal = "positive"
	SignalNegative EmotionalSignal = "negative"
	SignalNeutral  EmotionalSignal = "neutral"
)

// SignalForState folds the five-way emotional state of a turn into a
// three-way signal.
func SignalForState(state store.EmotionalState) EmotionalSignal {
	switch state {
	case store.EmotionHappy, store.EmotionExcited:
		return SignalPositive
	case store.EmotionSad, store.EmotionAngry:
		return SignalNegative
	default:
		return SignalNeutral
	}
}

// SignalScore maps a signal onto the normalized 0..1 scale of the running
// average: positive 0.7, negative 0.3, neutral 0.5.
func SignalScore(signal EmotionalSignal) float64 {
	switch signal {
	case SignalPositive:
		return 0.7
	case SignalNegative:
		return 0.3
	default:
		return 0.5
	}
}
