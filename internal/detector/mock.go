package detector

import (
	"math"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	hands []HandLandmarks
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Fixture geometry: digits fan out from the wrist; an extended digit has its
// tip roughly twice as far from the wrist as its base joint, a curled digit
// keeps the tip at base distance.
const (
	fixtureBaseDist     = 0.20
	fixtureExtendedDist = 0.40
	fixtureCurledDist   = 0.21
	fixtureConfidence   = 0.9
)

// digit describes the landmark chain for one finger when building fixtures.
// The joint distances from the wrist are fixed so that the digit's reference
// base joint (thumb IP, finger MCP) sits exactly at fixtureBaseDist.
type digit struct {
	joints []int     // wrist-outward joint indices, tip excluded
	dists  []float64 // wrist distance for each joint in joints
	tip    int
	angle  float64 // fan direction in radians, 0 points up the image
}

var fixtureDigits = []digit{
	{joints: []int{ThumbCMC, ThumbMCP, ThumbIP}, dists: []float64{0.10, 0.15, fixtureBaseDist}, tip: ThumbTip, angle: -0.9},
	{joints: []int{IndexMCP, IndexPIP, IndexDIP}, dists: []float64{fixtureBaseDist, 0.25, 0.29}, tip: IndexTip, angle: -0.3},
	{joints: []int{MiddleMCP, MiddlePIP, MiddleDIP}, dists: []float64{fixtureBaseDist, 0.26, 0.30}, tip: MiddleTip, angle: 0.0},
	{joints: []int{RingMCP, RingPIP, RingDIP}, dists: []float64{fixtureBaseDist, 0.25, 0.29}, tip: RingTip, angle: 0.3},
	{joints: []int{PinkyMCP, PinkyPIP, PinkyDIP}, dists: []float64{fixtureBaseDist, 0.24, 0.27}, tip: PinkyTip, angle: 0.6},
}

// BuildHand constructs a synthetic hand where extended[i] controls whether
// digit i (thumb, index, middle, ring, little) is extended.
func BuildHand(extended [5]bool) HandLandmarks {
	hand := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	wristX, wristY := 0.5, 0.85
	hand.Points[Wrist] = Landmark{X: wristX, Y: wristY, Confidence: fixtureConfidence}

	place := func(idx int, angle, dist float64) {
		hand.Points[idx] = Landmark{
			X:          wristX + math.Sin(angle)*dist,
			Y:          wristY - math.Cos(angle)*dist, // up the image
			Confidence: fixtureConfidence,
		}
	}

	for i, d := range fixtureDigits {
		for j, idx := range d.joints {
			place(idx, d.angle, d.dists[j])
		}

		tipDist := fixtureCurledDist
		if extended[i] {
			tipDist = fixtureExtendedDist
		}
		place(d.tip, d.angle, tipDist)
	}

	return hand
}

// OpenPalmLandmarks returns a preset hand with all five digits extended.
func OpenPalmLandmarks() HandLandmarks {
	return BuildHand([5]bool{true, true, true, true, true})
}

// PeaceSignLandmarks returns a preset hand with index and middle extended.
func PeaceSignLandmarks() HandLandmarks {
	return BuildHand([5]bool{false, true, true, false, false})
}

// FistLandmarks returns a preset hand with every digit curled.
func FistLandmarks() HandLandmarks {
	return BuildHand([5]bool{false, false, false, false, false})
}

// ThreeFingerLandmarks returns a preset hand with index, middle and ring
// extended. Three extended digits is deliberately classified as unknown.
func ThreeFingerLandmarks() HandLandmarks {
	return BuildHand([5]bool{false, true, true, true, false})
}
