// Package events defines the conversion event emitted after every dispatch and the
// publishers that deliver it.
package events

import (
	"time"

	"github.com/google/uuid"
)

// ConversionEvent records the outcome of one conversion attempt.
type ConversionEvent struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	Conversion string `json:"conversion"`
	Version    string `json:"version,omitempty"`
	Ok         bool   `json:"ok"`
	// Code is the error code when Ok is false.
	Code       string `json:"code,omitempty"`
	DurationMs int64  `json:"durationMs"`
	Timestamp  string `json:"timestamp"`
}

// NewConversionEvent fills in the ID, timestamp and duration of an event that started at start.
func NewConversionEvent(source, target, conversion string, start time.Time) *ConversionEvent {
	now := time.Now()
	return &ConversionEvent{
		ID:         uuid.NewString(),
		Source:     source,
		Target:     target,
		Conversion: conversion,
		DurationMs: now.Sub(start).Milliseconds(),
		Timestamp:  now.UTC().Format(time.RFC3339Nano),
	}
}
