package agentic

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Event is one searchable listing.
type Event struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Date        string `yaml:"date" json:"date"`
	Location    string `yaml:"location" json:"location"`
	BookingLink string `yaml:"booking_link" json:"booking_link"`
}

// passage is the text embedded for e. Events without a title or a
// description cannot be indexed.
func (e Event) passage() (string, bool) {
	if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Description) == "" {
		return "", false
	}
	return e.Title + ". " + e.Description, true
}

// LoadEvents reads a JSON or YAML list of events. An empty path or a missing
// file yields no events.
func LoadEvents(path string) ([]Event, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read events %s: %w", path, err)
	}
	var events []Event
	if err := yaml.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse events %s: %w", path, err)
	}
	return events, nil
}
