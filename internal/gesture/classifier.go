// Package gesture classifies hand poses into the discrete commands that
// drive the Drishti mode machine.
package gesture

import "github.com/ayusman/drishti/internal/detector"

// Gesture is the discrete classification of a hand pose.
type Gesture string

const (
	// OpenPalm is a flat hand, four or five digits extended.
	OpenPalm Gesture = "open_palm"
	// PeaceSign is exactly two extended digits.
	PeaceSign Gesture = "peace_sign"
	// Fist is a closed hand, at most one extended digit.
	Fist Gesture = "fist"
	// Unknown covers absent hands, low-confidence landmarks and the
	// three-digit dead zone.
	Unknown Gesture = "unknown"
)

// Classification thresholds.
const (
	// MinLandmarkConfidence is the floor below which a landmark does not
	// take part in the extended-digit test.
	MinLandmarkConfidence = 0.3
	// ThumbExtendFactor is the wrist-distance slack for the thumb.
	ThumbExtendFactor = 1.2
	// FingerExtendFactor is the wrist-distance slack for the four fingers.
	// Both factors are empirical, tuned against noisy pose estimates.
	FingerExtendFactor = 1.3
)

// Result is a single classification of one hand pose.
type Result struct {
	Gesture       Gesture `json:"gesture"`
	Confidence    float64 `json:"confidence"`
	ExtendedCount int     `json:"extendedCount"`
}

// digitSpec names the tip and reference base landmark for one digit.
// The thumb measures against its IP joint, the fingers against their MCP.
type digitSpec struct {
	tip    int
	base   int
	factor float64
}

var digits = [5]digitSpec{
	{detector.ThumbTip, detector.ThumbIP, ThumbExtendFactor},
	{detector.IndexTip, detector.IndexMCP, FingerExtendFactor},
	{detector.MiddleTip, detector.MiddleMCP, FingerExtendFactor},
	{detector.RingTip, detector.RingMCP, FingerExtendFactor},
	{detector.PinkyTip, detector.PinkyMCP, FingerExtendFactor},
}

// Classify maps one detected hand to a gesture. It is pure and never fails:
// a nil hand or a hand with no confidently located digit degrades to Unknown
// with zero confidence. The reported confidence is the estimator's hand
// score, not recomputed here.
func Classify(hand *detector.HandLandmarks) Result {
	if hand == nil {
		return Result{Gesture: Unknown}
	}

	extended := 0
	usable := 0

	for _, d := range digits {
		tip := hand.Points[d.tip]
		base := hand.Points[d.base]
		if tip.Confidence <= MinLandmarkConfidence || base.Confidence <= MinLandmarkConfidence {
			continue
		}
		usable++

		tipDist := hand.Distance(detector.Wrist, d.tip)
		baseDist := hand.Distance(detector.Wrist, d.base)
		if tipDist > baseDist*d.factor {
			extended++
		}
	}

	if usable == 0 {
		return Result{Gesture: Unknown}
	}

	return Result{
		Gesture:       gestureForCount(extended),
		Confidence:    hand.Score,
		ExtendedCount: extended,
	}
}

// gestureForCount maps an extended-digit count in [0,5] to a gesture.
// Three extended digits is left unmapped on purpose: it is the most
// common misread between a palm and a peace sign.
func gestureForCount(extended int) Gesture {
	switch extended {
	case 4, 5:
		return OpenPalm
	case 2:
		return PeaceSign
	case 0, 1:
		return Fist
	default:
		return Unknown
	}
}
