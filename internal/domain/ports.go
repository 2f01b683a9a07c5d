// Package domain defines the core types and interfaces for VocalPal.
// All other packages depend on domain; domain depends on nothing.
package domain

import "context"

// ProgressStore persists per-user progress. Implementations can be
// in-memory, SQLite or a hosted backend.
//
// Save applies the update as a merge: fields the update leaves nil must
// survive. Saving for an unknown user creates the record first.
type ProgressStore interface {
	Load(ctx context.Context, userID string) (ProgressSnapshot, error)
	Save(ctx context.Context, userID string, update ProgressUpdate) error
}

// IntentClassifier converts a raw transcript into an intent.
// Implementations can be keyword-based or model-backed.
type IntentClassifier interface {
	Classify(transcript string) Intent
}
