// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared across tane: seeds,
// reports, and the configuration tree.
package types

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a seed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Statuses lists every valid Status in lifecycle order.
var Statuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Settled reports whether the seed has finished an attempt, successfully or not.
func (s Status) Settled() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseStatus converts a string to a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// PlantType is the decorative category a seed grows into. It is derived from
// the idea text when the seed is planted.
type PlantType string

const (
	PlantPine   PlantType = "pine"
	PlantSakura PlantType = "sakura"
	PlantBamboo PlantType = "bamboo"
	PlantFern   PlantType = "fern"
	PlantOak    PlantType = "oak"
)

// Seed is a submitted idea and its research lifecycle state.
type Seed struct {
	// ID is a UUID assigned at creation.
	ID string `json:"id" yaml:"id"`

	// Content is the idea text as submitted (trimmed).
	Content string `json:"content" yaml:"content"`

	Status Status `json:"status" yaml:"status"`

	// Model is the model identifier requested by the user, empty for "any".
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	PlantType PlantType `json:"plant_type" yaml:"plant_type"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// UpdatedAt is the time of the last status write.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Report is the research artifact produced for a seed. There is at most one
// per seed.
type Report struct {
	SeedID string `json:"seed_id" yaml:"seed_id"`

	// Content is the markdown report text. Never empty for a stored report.
	Content string `json:"content" yaml:"content"`

	// Logs holds progress messages recorded while the report was produced.
	Logs []string `json:"logs,omitempty" yaml:"logs,omitempty"`

	// Model is the identifier of the model that wrote the report.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
