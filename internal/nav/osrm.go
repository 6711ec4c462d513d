package nav

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultOSRMBase is the public OSRM demo server.
const DefaultOSRMBase = "https://router.project-osrm.org"

// OSRMRouter plans foot routes against an OSRM-compatible HTTP backend.
type OSRMRouter struct {
	base   string
	client *http.Client
}

// NewOSRMRouter creates a router for the given base URL. An empty base
// falls back to the public demo server.
func NewOSRMRouter(base string) *OSRMRouter {
	if base == "" {
		base = DefaultOSRMBase
	}
	return &OSRMRouter{
		base:   base,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// osrmResponse is the slice of the OSRM route response we consume.
type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Legs []struct {
			Steps []osrmStep `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

type osrmStep struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Maneuver struct {
		Type     string `json:"type"`
		Modifier string `json:"modifier"`
	} `json:"maneuver"`
}

// Route fetches a walking route and flattens it into spoken steps.
func (r *OSRMRouter) Route(ctx context.Context, from, to Point) ([]Step, error) {
	url := fmt.Sprintf("%s/route/v1/foot/%f,%f;%f,%f?steps=true&overview=false",
		r.base, from.Lon, from.Lat, to.Lon, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Service: "routing", Status: resp.StatusCode}
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parse route response: %w", err)
	}

	if body.Code != "Ok" || len(body.Routes) == 0 {
		return nil, ErrNoRoute
	}

	var steps []Step
	for _, leg := range body.Routes[0].Legs {
		for _, st := range leg.Steps {
			steps = append(steps, Step{
				Instruction: spokenInstruction(st),
				DistanceM:   st.Distance,
			})
		}
	}
	if len(steps) == 0 {
		return nil, ErrNoRoute
	}
	return steps, nil
}

// spokenInstruction renders one OSRM maneuver as a sentence.
func spokenInstruction(st osrmStep) string {
	onto := ""
	if st.Name != "" {
		onto = " onto " + st.Name
	}

	var text string
	switch st.Maneuver.Type {
	case "depart":
		text = "Head " + direction(st.Maneuver.Modifier) + onto
	case "arrive":
		return "You have arrived at your destination"
	case "turn", "end of road", "fork":
		text = "Turn " + direction(st.Maneuver.Modifier) + onto
	case "continue", "new name":
		text = "Continue " + direction(st.Maneuver.Modifier) + onto
	case "roundabout", "rotary":
		text = "Take the roundabout" + onto
	default:
		text = "Continue" + onto
	}

	if st.Distance >= 10 {
		text += fmt.Sprintf(" for %d meters", int(st.Distance))
	}
	return text
}

// direction translates an OSRM modifier into plain words.
func direction(modifier string) string {
	switch modifier {
	case "left", "right", "straight":
		return modifier
	case "slight left":
		return "slightly left"
	case "slight right":
		return "slightly right"
	case "sharp left":
		return "sharply left"
	case "sharp right":
		return "sharply right"
	case "uturn":
		return "around"
	default:
		return "straight"
	}
}
