// Package worker runs background condition sweeps for the commute optimizer.
package worker

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
)

// SweepConfig holds configuration for the condition sweep job.
type SweepConfig struct {
	// Concurrency is the number of targets checked at once.
	// Default: 3
	Concurrency int

	// Timeout bounds the check of one target.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxFailureRatio is the share of failed targets above which a sweep
	// counts as failed.
	// Default: 0.5
	MaxFailureRatio float64
}

// DefaultSweepConfig returns the default sweep configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Concurrency:     3,
		Timeout:         30 * time.Second,
		MaxFailureRatio: 0.5,
	}
}

func (c SweepConfig) withDefaults() SweepConfig {
	d := DefaultSweepConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxFailureRatio <= 0 {
		c.MaxFailureRatio = d.MaxFailureRatio
	}
	return c
}

type point struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

type targetEntry struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Priority    int      `yaml:"priority"`
	Origin      point    `yaml:"origin"`
	Destination point    `yaml:"destination"`
	Types       []string `yaml:"types"`
}

type targetFile struct {
	Targets []targetEntry `yaml:"targets"`
}

// LoadTargets reads the monitored commutes from a YAML file. Targets are
// returned in priority order (lower first); a target without types watches
// every condition type.
//
//	targets:
//	  - id: home-office
//	    name: Home to office
//	    priority: 1
//	    origin: {lat: 52.3676, lon: 4.9041}
//	    destination: {lat: 52.0894, lon: 5.1102}
//	    types: [traffic, transit]
func LoadTargets(path string) ([]conditions.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening targets file: %w", err)
	}
	defer f.Close()
	return DecodeTargets(f)
}

// DecodeTargets parses a targets document. Unknown keys are rejected.
func DecodeTargets(r io.Reader) ([]conditions.Target, error) {
	var file targetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing targets file: %w", err)
	}

	entries := file.Targets
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Priority < entries[j].Priority
	})

	targets := make([]conditions.Target, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		t := conditions.Target{
			ID:          e.ID,
			Name:        e.Name,
			Origin:      commute.Point{Lat: e.Origin.Lat, Lon: e.Origin.Lon},
			Destination: commute.Point{Lat: e.Destination.Lat, Lon: e.Destination.Lon},
		}
		if len(e.Types) == 0 {
			t.Types = append([]conditions.Type(nil), conditions.Types...)
		}
		for _, ct := range e.Types {
			t.Types = append(t.Types, conditions.Type(ct))
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("target %d (%s): %w", i, e.ID, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("target %d: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
		targets = append(targets, t)
	}
	return targets, nil
}
