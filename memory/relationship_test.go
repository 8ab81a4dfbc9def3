package memory

import (
	"testing"

	"github.com/narrinai/companion/store"
)

func TestSignalForState(t *testing.T) {
	tests := []struct {
		state store.EmotionalState
		want  EmotionalSignal
	}{
		{store.EmotionHappy, SignalPositive},
		{store.EmotionExcited, SignalPositive},
		{store.EmotionSad, SignalNegative},
		{store.EmotionAngry, SignalNegative},
		{store.EmotionNeutral, SignalNeutral},
	}
	for _, tt := range tests {
		if got := SignalForState(tt.state); got != tt.want {
			t.Errorf("SignalForState(%q) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestSignalScore(t *testing.T) {
	tests := []struct {
		signal EmotionalSignal
		want   float64
	}{
		{SignalPositive, 0.7},
		{SignalNegative, 0.3},
		{SignalNeutral, 0.5},
	}
	for _, tt := range tests {
		if got := SignalScore(tt.signal); got != tt.want {
			t.Errorf("SignalScore(%q) = %v, want %v", tt.signal, got, tt.want)
		}
	}
}
