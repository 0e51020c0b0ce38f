package services

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Lllllllleong/pdftranscriber/internal/gcp"
	"github.com/Lllllllleong/pdftranscriber/internal/models"
	"github.com/google/uuid"
)

const (
	pdfSuffix         = ".pdf"
	txtSuffix         = ".txt"
	outputContentType = "text/plain"
)

// TranscriberConfig holds all configuration for the transcriber service.
type TranscriberConfig struct {
	InputBucket         string
	OutputBucket        string
	ProjectID           string
	Location            string
	SecretID            string
	SecretVersion       string
	ModelName           string
	MaxOutputTokens     int32
	FirestoreCollection string
}

// SecretSource returns the text payload of a named secret.
type SecretSource interface {
	AccessSecret(ctx context.Context, secretID string) (string, error)
}

// ObjectStore lists source objects and writes results.
type ObjectStore interface {
	Objects(ctx context.Context, bucket string) iter.Seq2[string, error]
	Write(ctx context.Context, bucket, objectName, content, contentType string) error
	Close() error
}

// StoreConnector authenticates an ObjectStore from a credential payload.
type StoreConnector func(ctx context.Context, credentialsJSON []byte) (ObjectStore, error)

// TextGenerator turns a gs:// PDF reference into transcribed text.
type TextGenerator interface {
	Transcribe(ctx context.Context, pdfURI string) (string, error)
}

// Ledger records the outcome of each processed object.
type Ledger interface {
	Record(ctx context.Context, rec models.TranscriptionRecord) error
}

// TranscriberFunction holds the dependencies for the transcription logic.
type TranscriberFunction struct {
	secrets   SecretSource
	connect   StoreConnector
	generator TextGenerator
	ledger    Ledger
	config    TranscriberConfig
	logger    *slog.Logger
	newRunID  func() string
	now       func() time.Time
}

// loadConfig loads and validates all necessary environment variables for this service.
func loadConfig() (*TranscriberConfig, error) {
	config := TranscriberConfig{
		InputBucket:         gcp.GetEnv("INPUT_BUCKET", ""),
		OutputBucket:        gcp.GetEnv("OUTPUT_BUCKET", ""),
		ProjectID:           gcp.GetEnv("PROJECT_ID", ""),
		Location:            gcp.GetEnv("LOCATION", "us-central1"),
		SecretID:            gcp.GetEnv("SECRET_ID", "gcs-access-key"),
		SecretVersion:       gcp.GetEnv("SECRET_VERSION", "latest"),
		ModelName:           gcp.GetEnv("MODEL_NAME", gcp.DefaultTranscriberModel),
		FirestoreCollection: gcp.GetEnv("FIRESTORE_COLLECTION", ""),
	}
	if config.InputBucket == "" || config.OutputBucket == "" {
		return nil, fmt.Errorf("INPUT_BUCKET and OUTPUT_BUCKET must be set")
	}
	if config.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	maxTokens, err := strconv.ParseInt(gcp.GetEnv("MAX_OUTPUT_TOKENS", strconv.Itoa(gcp.DefaultMaxOutputTokens)), 10, 32)
	if err != nil || maxTokens <= 0 {
		return nil, fmt.Errorf("MAX_OUTPUT_TOKENS must be a positive integer")
	}
	config.MaxOutputTokens = int32(maxTokens)

	return &config, nil
}

// NewTranscriber creates a TranscriberFunction backed by Secret Manager, Cloud Storage,
// Vertex AI and, when FIRESTORE_COLLECTION is set, a Firestore run ledger.
func NewTranscriber(ctx context.Context) (*TranscriberFunction, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	secrets, err := gcp.NewSecretAccessor(ctx, config.ProjectID, config.SecretVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret accessor: %w", err)
	}

	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.Location, config.ModelName, config.MaxOutputTokens)
	if err != nil {
		closeAll(secrets)
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	var ledger Ledger
	if config.FirestoreCollection != "" {
		runLedger, err := gcp.NewRunLedger(ctx, config.ProjectID, config.FirestoreCollection)
		if err != nil {
			closeAll(vertexClient, secrets)
			return nil, fmt.Errorf("failed to create run ledger: %w", err)
		}
		ledger = runLedger
	}

	f := NewTranscriberWith(*config, secrets, connectBucketStore, vertexClient, ledger)
	slog.Info("Transcriber logic initialized.", "inputBucket", config.InputBucket, "outputBucket", config.OutputBucket, "model", config.ModelName)
	return f, nil
}

// closeAll releases clients built before a later constructor failed.
func closeAll(closers ...io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close client after initialization error", "error", err)
		}
	}
}

func connectBucketStore(ctx context.Context, credentialsJSON []byte) (ObjectStore, error) {
	store, err := gcp.NewBucketStore(ctx, credentialsJSON)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewTranscriberWith wires a TranscriberFunction from explicit collaborators.
// A nil ledger disables record keeping.
func NewTranscriberWith(config TranscriberConfig, secrets SecretSource, connect StoreConnector, generator TextGenerator, ledger Ledger) *TranscriberFunction {
	return &TranscriberFunction{
		secrets:   secrets,
		connect:   connect,
		generator: generator,
		ledger:    ledger,
		config:    config,
		logger:    slog.Default(),
		newRunID:  uuid.NewString,
		now:       time.Now,
	}
}

// SetLogger replaces the logger used for run output.
func (f *TranscriberFunction) SetLogger(logger *slog.Logger) {
	f.logger = logger
}

// IsPDF reports whether an object name carries the literal ".pdf" suffix.
func IsPDF(objectName string) bool {
	return strings.HasSuffix(objectName, pdfSuffix)
}

// OutputName derives the destination object name: the ".pdf" suffix becomes ".txt".
func OutputName(objectName string) string {
	return strings.TrimSuffix(objectName, pdfSuffix) + txtSuffix
}

// Process transcribes every PDF in the input bucket into the output bucket.
// Setup and listing failures abort the run with an ErrSetup error. Failures on
// individual objects are logged and skipped; the completion message is returned
// no matter how many of them failed.
func (f *TranscriberFunction) Process(ctx context.Context) (string, error) {
	runID := f.newRunID()
	logCtx := f.logger.With("runId", runID, "inputBucket", f.config.InputBucket, "outputBucket", f.config.OutputBucket)
	logCtx.Info("Starting PDF processing run.")

	store, err := f.authenticate(ctx)
	if err != nil {
		logCtx.Error("Critical: authentication failed", "error", err)
		return "", err
	}
	defer f.closeStore(logCtx, store)

	for name, err := range store.Objects(ctx, f.config.InputBucket) {
		if err != nil {
			logCtx.Error("Critical: listing input bucket failed", "error", err)
			return "", setupError("failed to list input bucket", err)
		}
		if !IsPDF(name) {
			continue
		}
		// Item failures are logged inside processObject and never stop the run.
		_ = f.processObject(ctx, logCtx, store, runID, f.config.InputBucket, name)
	}

	logCtx.Info("PDF processing run finished.")
	return models.CompletionMessage, nil
}

// ProcessEvent transcribes the single object named by a GCS event. Objects
// without the ".pdf" suffix are ignored. An item failure is logged and not
// returned, so the event is not redelivered.
func (f *TranscriberFunction) ProcessEvent(ctx context.Context, e models.GCSEvent) error {
	runID := f.newRunID()
	logCtx := f.logger.With("runId", runID, "gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !IsPDF(e.Name) {
		logCtx.Debug("Ignoring non-PDF object.")
		return nil
	}
	if e.Bucket == "" {
		return setupError("event is missing a bucket", fmt.Errorf("object %q", e.Name))
	}

	store, err := f.authenticate(ctx)
	if err != nil {
		logCtx.Error("Critical: authentication failed", "error", err)
		return err
	}
	defer f.closeStore(logCtx, store)

	// Already logged; returning it would only trigger redelivery.
	_ = f.processObject(ctx, logCtx, store, runID, e.Bucket, e.Name)
	return nil
}

// authenticate fetches the storage credential from the secret store and builds
// an ObjectStore from it. The credential is never retained.
func (f *TranscriberFunction) authenticate(ctx context.Context) (ObjectStore, error) {
	credentials, err := f.secrets.AccessSecret(ctx, f.config.SecretID)
	if err != nil {
		return nil, setupError("failed to access storage credentials", err)
	}
	store, err := f.connect(ctx, []byte(credentials))
	if err != nil {
		return nil, setupError("failed to authenticate storage client", err)
	}
	return store, nil
}

func (f *TranscriberFunction) closeStore(logCtx *slog.Logger, store ObjectStore) {
	if err := store.Close(); err != nil {
		logCtx.Warn("Failed to close storage client", "error", err)
	}
}

// processObject transcribes one PDF and writes the result. It returns an
// *ItemError on failure after logging it.
func (f *TranscriberFunction) processObject(ctx context.Context, logCtx *slog.Logger, store ObjectStore, runID, bucket, name string) error {
	logCtx = logCtx.With("gcsObject", name)
	logCtx.Info(fmt.Sprintf("Processing %s", name))

	sourceURI := gcp.GCSUri(bucket, name)
	outputName := OutputName(name)
	outputURI := gcp.GCSUri(f.config.OutputBucket, outputName)

	err := f.transcribeAndWrite(ctx, store, name, sourceURI, outputName)
	rec := models.TranscriptionRecord{
		RunID:     runID,
		SourceURI: sourceURI,
		OutputURI: outputURI,
		Status:    models.StatusTranscribed,
		CreatedAt: f.now(),
	}
	if err != nil {
		logCtx.Error(fmt.Sprintf("Error processing %s: %v", name, err), "error", err)
		rec.Status = models.StatusFailed
		rec.ErrorDetails = err.Error()
		rec.OutputURI = ""
	} else {
		logCtx.Info(fmt.Sprintf("Transcription saved to %s", outputURI))
	}

	if f.ledger != nil {
		if lerr := f.ledger.Record(ctx, rec); lerr != nil {
			logCtx.Warn("Failed to record transcription outcome", "error", lerr)
		}
	}
	return err
}

func (f *TranscriberFunction) transcribeAndWrite(ctx context.Context, store ObjectStore, name, sourceURI, outputName string) error {
	text, err := f.generator.Transcribe(ctx, sourceURI)
	if err != nil {
		return &ItemError{Object: name, Stage: StageTranscribe, Err: err}
	}
	if text == "" {
		return &ItemError{Object: name, Stage: StageTranscribe, Err: ErrEmptyTranscription}
	}
	if err := store.Write(ctx, f.config.OutputBucket, outputName, text, outputContentType); err != nil {
		return &ItemError{Object: name, Stage: StageWrite, Err: err}
	}
	return nil
}
