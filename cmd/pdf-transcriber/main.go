package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/pdftranscriber/internal/models"
	"github.com/Lllllllleong/pdftranscriber/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	transcriberInstance *services.TranscriberFunction
	once                sync.Once
	initErr             error

	newTranscriber = services.NewTranscriber
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "ProcessPDFs" is the HTTP entry point; "TranscribePDFEvent" handles GCS object-finalized events.
	functions.HTTP("ProcessPDFs", handleProcessPDFs)
	functions.CloudEvent("TranscribePDFEvent", transcribePDFEvent)
}

// main is required by the Go Functions Framework.
func main() {}

func initialize() error {
	once.Do(func() {
		transcriberInstance, initErr = newTranscriber(context.Background())
	})
	return initErr
}

// handleProcessPDFs runs one full pass over the input bucket. The request itself is unused.
func handleProcessPDFs(w http.ResponseWriter, r *http.Request) {
	if err := initialize(); err != nil {
		slog.Error("Critical: Transcriber initialization failed", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	msg, err := transcriberInstance.Process(r.Context())
	if err != nil {
		// The error is already logged inside the Process method.
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, msg); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// transcribePDFEvent transcribes the object named in a GCS CloudEvent.
func transcribePDFEvent(ctx context.Context, e cloudevents.Event) error {
	if err := initialize(); err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		return err
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return transcriberInstance.ProcessEvent(ctx, gcsEvent)
}
