package models

import "time"

// Record statuses.
const (
	StatusTranscribed = "TRANSCRIBED"
	StatusFailed      = "FAILED"
)

// TranscriptionRecord is the optional Firestore audit row for one processed PDF.
type TranscriptionRecord struct {
	RunID        string    `firestore:"runId,omitempty"`
	SourceURI    string    `firestore:"sourceUri,omitempty"`
	OutputURI    string    `firestore:"outputUri,omitempty"`
	Status       string    `firestore:"status,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt,omitempty"`
}
