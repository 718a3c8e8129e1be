package model

import "time"

// AuditEvent is one immutable entry in a workflow's audit trail.
type AuditEvent struct {
	At      time.Time      `json:"at"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}
