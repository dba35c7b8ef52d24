// Package queue defines the broker payloads and the consumer that turns
// them into an activity log.
package queue

import "time"

// MedicationTakenQueue is the durable queue carrying MedicationTakenEvent.
const MedicationTakenQueue = "medication.taken"

// MedicationTakenEvent is published after a dose is recorded. It carries
// enough for consumers to log or notify without reading the database.
type MedicationTakenEvent struct {
	MedicationID   uint64    `json:"medication_id"`
	MedicationName string    `json:"medication_name"`
	Dosage         string    `json:"dosage"`
	UserID         uint64    `json:"user_id"`
	TakenDate      string    `json:"taken_date"`
	TakenAt        time.Time `json:"taken_at"`
}
