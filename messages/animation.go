package messages

import (
	"encoding/json"
	"fmt"
)

// Keyframe is one step of a Web Animations API keyframe list
type Keyframe map[string]string

// Animation describes the property-change flash played on an updated control
type Animation struct {
	Keyframes  []Keyframe `json:"keyframes"`
	DurationMS int        `json:"duration"`
	Easing     string     `json:"easing,omitempty"`
}

// DefaultAnimation flashes the background palegreen and fades back to white
func DefaultAnimation() Animation {
	return Animation{
		Keyframes: []Keyframe{
			{"background": "palegreen"},
			{"background": "#ffffff"},
		},
		DurationMS: 4000,
		Easing:     "ease-out",
	}
}

// Args renders the arguments passed to Element.animate()
func (a Animation) Args() string {
	frames, err := json.Marshal(a.Keyframes)
	if err != nil || a.Keyframes == nil {
		frames = []byte("[]")
	}
	options := map[string]any{"duration": a.DurationMS}
	if a.Easing != "" {
		options["easing"] = a.Easing
	}
	opts, err := json.Marshal(options)
	if err != nil {
		opts = []byte("{}")
	}
	return fmt.Sprintf("%s, %s", frames, opts)
}
