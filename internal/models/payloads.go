package models

// CompletionMessage is the body returned by the HTTP entry point whenever
// setup succeeded, regardless of how many objects failed.
const CompletionMessage = "PDF processing complete"

// GCSEvent is the data payload of a GCS object-finalized CloudEvent.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}
