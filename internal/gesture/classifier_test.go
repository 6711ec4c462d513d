package gesture

import (
	"testing"

	"github.com/ayusman/drishti/internal/detector"
)

func TestClassify_PresetHands(t *testing.T) {
	tests := []struct {
		name     string
		hand     detector.HandLandmarks
		want     Gesture
		extended int
	}{
		{"open palm", detector.OpenPalmLandmarks(), OpenPalm, 5},
		{"peace sign", detector.PeaceSignLandmarks(), PeaceSign, 2},
		{"fist", detector.FistLandmarks(), Fist, 0},
		{"three fingers dead zone", detector.ThreeFingerLandmarks(), Unknown, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(&tt.hand)
			if got.Gesture != tt.want {
				t.Errorf("Classify() = %s, want %s", got.Gesture, tt.want)
			}
			if got.ExtendedCount != tt.extended {
				t.Errorf("ExtendedCount = %d, want %d", got.ExtendedCount, tt.extended)
			}
			if got.Confidence != tt.hand.Score {
				t.Errorf("Confidence = %f, want upstream score %f", got.Confidence, tt.hand.Score)
			}
		})
	}
}

func TestClassify_CountMapping(t *testing.T) {
	// Each count in [0,5] maps to exactly one gesture.
	tests := []struct {
		extended [5]bool
		want     Gesture
	}{
		{[5]bool{false, false, false, false, false}, Fist},      // 0
		{[5]bool{true, false, false, false, false}, Fist},       // 1
		{[5]bool{false, true, true, false, false}, PeaceSign},   // 2
		{[5]bool{true, true, true, false, false}, Unknown},      // 3
		{[5]bool{true, true, true, true, false}, OpenPalm},      // 4
		{[5]bool{true, true, true, true, true}, OpenPalm},       // 5
	}

	for _, tt := range tests {
		hand := detector.BuildHand(tt.extended)
		got := Classify(&hand)
		if got.Gesture != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.extended, got.Gesture, tt.want)
		}
	}
}

func TestClassify_NilHand(t *testing.T) {
	got := Classify(nil)
	if got.Gesture != Unknown {
		t.Errorf("Classify(nil) = %s, want %s", got.Gesture, Unknown)
	}
	if got.Confidence != 0 {
		t.Errorf("Confidence = %f, want 0", got.Confidence)
	}
}

func TestClassify_LowConfidenceLandmarks(t *testing.T) {
	t.Run("all digits unusable returns unknown with zero confidence", func(t *testing.T) {
		hand := detector.OpenPalmLandmarks()
		for i := range hand.Points {
			hand.Points[i].Confidence = 0.1
		}

		got := Classify(&hand)
		if got.Gesture != Unknown {
			t.Errorf("Classify() = %s, want %s", got.Gesture, Unknown)
		}
		if got.Confidence != 0 {
			t.Errorf("Confidence = %f, want 0", got.Confidence)
		}
	})

	t.Run("one unusable digit just drops out of the count", func(t *testing.T) {
		// Open palm with an untrusted index tip: count drops to 4,
		// which still classifies as open palm.
		hand := detector.OpenPalmLandmarks()
		hand.Points[detector.IndexTip].Confidence = 0.2

		got := Classify(&hand)
		if got.Gesture != OpenPalm {
			t.Errorf("Classify() = %s, want %s", got.Gesture, OpenPalm)
		}
		if got.ExtendedCount != 4 {
			t.Errorf("ExtendedCount = %d, want 4", got.ExtendedCount)
		}
	})

	t.Run("unusable base counts like unusable tip", func(t *testing.T) {
		hand := detector.PeaceSignLandmarks()
		hand.Points[detector.MiddleMCP].Confidence = 0.0

		got := Classify(&hand)
		if got.ExtendedCount != 1 {
			t.Errorf("ExtendedCount = %d, want 1", got.ExtendedCount)
		}
		if got.Gesture != Fist {
			t.Errorf("Classify() = %s, want %s", got.Gesture, Fist)
		}
	})
}

func TestClassify_ExtensionThreshold(t *testing.T) {
	// A finger tip just inside the slack factor must not count as
	// extended; just outside it must.
	base := 0.2

	t.Run("finger below factor is curled", func(t *testing.T) {
		hand := detector.FistLandmarks()
		// Tip at 1.25x base distance, below the 1.3 finger factor.
		hand.Points[detector.IndexTip] = detector.Landmark{
			X:          hand.Points[detector.Wrist].X,
			Y:          hand.Points[detector.Wrist].Y - base*1.25,
			Confidence: 0.9,
		}
		hand.Points[detector.IndexMCP] = detector.Landmark{
			X:          hand.Points[detector.Wrist].X,
			Y:          hand.Points[detector.Wrist].Y - base,
			Confidence: 0.9,
		}

		got := Classify(&hand)
		if got.ExtendedCount != 0 {
			t.Errorf("ExtendedCount = %d, want 0", got.ExtendedCount)
		}
	})

	t.Run("thumb factor is looser than finger factor", func(t *testing.T) {
		hand := detector.FistLandmarks()
		// Tip at 1.25x base distance: extended for the 1.2 thumb
		// factor even though it was curled for a finger.
		hand.Points[detector.ThumbTip] = detector.Landmark{
			X:          hand.Points[detector.Wrist].X,
			Y:          hand.Points[detector.Wrist].Y - base*1.25,
			Confidence: 0.9,
		}
		hand.Points[detector.ThumbIP] = detector.Landmark{
			X:          hand.Points[detector.Wrist].X,
			Y:          hand.Points[detector.Wrist].Y - base,
			Confidence: 0.9,
		}

		got := Classify(&hand)
		if got.ExtendedCount != 1 {
			t.Errorf("ExtendedCount = %d, want 1", got.ExtendedCount)
		}
		if got.Gesture != Fist {
			t.Errorf("Classify() = %s, want %s (one digit is still a fist)", got.Gesture, Fist)
		}
	})
}
