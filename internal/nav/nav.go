// Package nav provides walking navigation: it geocodes a destination,
// fetches a foot route, and hands out one spoken instruction at a time.
package nav

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Navigation errors surfaced to callers, which turn them into speech.
var (
	// ErrNoLocation means the current position is unavailable.
	ErrNoLocation = errors.New("current location unavailable")
	// ErrNoRoute means no walkable route to the destination was found.
	ErrNoRoute = errors.New("no route found")
	// ErrNotNavigating means no route is active.
	ErrNotNavigating = errors.New("not navigating")
)

// APIError is a non-2xx answer from the routing or geocoding backend.
type APIError struct {
	Service string
	Status  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Service, e.Status)
}

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Step is one instruction of a walking route.
type Step struct {
	Instruction string  `json:"instruction"`
	DistanceM   float64 `json:"distanceM"`
}

// LocationProvider reports the user's current position.
type LocationProvider interface {
	Current(ctx context.Context) (Point, error)
}

// FixedLocation is a LocationProvider pinned to one coordinate, for
// configurations without a position source.
type FixedLocation Point

// Current returns the fixed coordinate.
func (f FixedLocation) Current(context.Context) (Point, error) {
	return Point(f), nil
}

// geocoder resolves a free-text destination to a coordinate.
type geocoder interface {
	Geocode(ctx context.Context, query string) (Point, error)
}

// router plans a walking route between two coordinates.
type router interface {
	Route(ctx context.Context, from, to Point) ([]Step, error)
}

// Service holds the active route and the user's progress along it. It
// implements the session machine's Navigator contract; the extra step
// accessors serve the HTTP API.
type Service struct {
	geocode  geocoder
	route    router
	location LocationProvider

	mu     sync.Mutex
	steps  []Step
	index  int
	active bool
}

// NewService wires a Service from its backends.
func NewService(geocode geocoder, route router, location LocationProvider) *Service {
	return &Service{
		geocode:  geocode,
		route:    route,
		location: location,
	}
}

// Start plans a route to the destination and returns the first instruction.
func (s *Service) Start(ctx context.Context, destination string) (string, error) {
	if s.location == nil {
		return "", ErrNoLocation
	}
	from, err := s.location.Current(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoLocation, err)
	}

	to, err := s.geocode.Geocode(ctx, destination)
	if err != nil {
		return "", err
	}

	steps, err := s.route.Route(ctx, from, to)
	if err != nil {
		return "", err
	}
	if len(steps) == 0 {
		return "", ErrNoRoute
	}

	s.mu.Lock()
	s.steps = steps
	s.index = 0
	s.active = true
	s.mu.Unlock()

	return steps[0].Instruction, nil
}

// CurrentInstruction returns the instruction for the current step.
func (s *Service) CurrentInstruction() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.index >= len(s.steps) {
		return "", false
	}
	return s.steps[s.index].Instruction, true
}

// AdvanceStep moves to the next step and returns its instruction. The
// second return is false once the route is exhausted.
func (s *Service) AdvanceStep() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return "", false
	}
	s.index++
	if s.index >= len(s.steps) {
		s.active = false
		return "", false
	}
	return s.steps[s.index].Instruction, true
}

// Steps returns a copy of the full route.
func (s *Service) Steps() []Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// Active reports whether a route is in progress.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stop abandons the active route.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = nil
	s.index = 0
	s.active = false
}
