// Package schedule holds the content plan and the cron trigger that turns
// due plan entries into publish tasks.
package schedule

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"autopress/internal/models"
)

// DateLayout is the canonical plan date format.
const DateLayout = "2006-01-02"

// dateLayouts are tried in order when reading plan dates.
var dateLayouts = []string{DateLayout, "2006/01/02", "01/02/06", "01/02/2006"}

// PlanEntry is one row of the content plan.
type PlanEntry struct {
	Date    string `yaml:"date"`
	Title   string `yaml:"title"`
	Keyword string `yaml:"keyword"`
	Idea    string `yaml:"idea"`
	Extra   string `yaml:"extra,omitempty"`
}

// Brief converts the entry into a generation brief.
func (e PlanEntry) Brief() models.Brief {
	return models.Brief{Title: e.Title, Keyword: e.Keyword, Idea: e.Idea, Extra: e.Extra}
}

// Plan is an ordered list of plan entries.
type Plan struct {
	Entries []PlanEntry `yaml:"entries"`
}

// LoadPlan reads a plan file. Both a bare list and an object with an
// "entries" key are accepted.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file %s: %w", path, err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes plan YAML.
func ParsePlan(data []byte) (*Plan, error) {
	var list []PlanEntry
	if err := yaml.Unmarshal(data, &list); err == nil {
		return &Plan{Entries: list}, nil
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &p, nil
}

// ParseDate parses a plan date using the accepted layouts.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// Due returns the entries scheduled on the calendar day of day in loc.
// Entries with an unreadable date or no title are skipped.
func (p *Plan) Due(day time.Time, loc *time.Location) []PlanEntry {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := day.In(loc).Date()

	var due []PlanEntry
	for i, e := range p.Entries {
		t, err := ParseDate(e.Date, loc)
		if err != nil {
			log.Warnf("plan entry %d (%q): %v", i+1, e.Title, err)
			continue
		}
		if strings.TrimSpace(e.Title) == "" {
			log.Warnf("plan entry %d on %s has no title", i+1, e.Date)
			continue
		}
		ey, em, ed := t.Date()
		if ey == y && em == m && ed == d {
			due = append(due, e)
		}
	}
	return due
}
