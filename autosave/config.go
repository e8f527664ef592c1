package autosave

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/zenibako/autosave-form/messages"
)

// Config holds the client-side timing and feedback options of a form
type Config struct {
	DebounceWindow    time.Duration      // Wait after the last keystroke before a text control submits
	MinSubmitting     time.Duration      // Shortest time the affordance shows the loading state
	Animation         messages.Animation // Flash played on controls the server updated
	InterruptInFlight bool               // Cancel the in-flight request instead of queueing behind it
}

// DefaultConfig returns the defaults: 750ms debounce, 300ms loading floor,
// palegreen flash over 4s, queueing behind in-flight requests
func DefaultConfig() Config {
	return Config{
		DebounceWindow: 750 * time.Millisecond,
		MinSubmitting:  300 * time.Millisecond,
		Animation:      messages.DefaultAnimation(),
	}
}

// configFile is the on-disk form of Config, durations in milliseconds
type configFile struct {
	DebounceMS        *int                `json:"debounce_ms,omitempty"`
	MinSubmittingMS   *int                `json:"min_submitting_ms,omitempty"`
	Animation         *messages.Animation `json:"animation,omitempty"`
	InterruptInFlight *bool               `json:"interrupt_in_flight,omitempty"`
}

// ParseConfig reads a JSON config. Missing keys keep their defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if file.DebounceMS != nil {
		cfg.DebounceWindow = time.Duration(*file.DebounceMS) * time.Millisecond
	}
	if file.MinSubmittingMS != nil {
		cfg.MinSubmitting = time.Duration(*file.MinSubmittingMS) * time.Millisecond
	}
	if file.Animation != nil {
		cfg.Animation = *file.Animation
	}
	if file.InterruptInFlight != nil {
		cfg.InterruptInFlight = *file.InterruptInFlight
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadConfig reads a JSON config file
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Validate rejects negative durations and empty animations
func (c Config) Validate() error {
	if c.DebounceWindow < 0 {
		return fmt.Errorf("debounce window must not be negative, got %v", c.DebounceWindow)
	}
	if c.MinSubmitting < 0 {
		return fmt.Errorf("minimum submitting duration must not be negative, got %v", c.MinSubmitting)
	}
	if c.Animation.DurationMS < 0 {
		return fmt.Errorf("animation duration must not be negative, got %dms", c.Animation.DurationMS)
	}
	if len(c.Animation.Keyframes) == 0 {
		return fmt.Errorf("animation needs at least one keyframe")
	}
	return nil
}
