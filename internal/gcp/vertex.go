package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// --- Transcriber Model Prompt ---
const TranscriberPrompt = "Transcribe this PDF into plain English text and separate it into paragraphs. Return only the text, no markup"

const (
	DefaultTranscriberModel = "gemini-2.5-pro"
	DefaultMaxOutputTokens  = 2048
)

// VertexClient holds the pre-configured transcription model.
type VertexClient struct {
	TranscriberModel *genai.GenerativeModel
	baseClient       *genai.Client
}

// NewVertexClient creates a new client holding the transcription model.
func NewVertexClient(ctx context.Context, projectID, region, modelName string, maxOutputTokens int32) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	return &VertexClient{
		TranscriberModel: newTranscriberModel(baseClient, modelName, maxOutputTokens),
		baseClient:       baseClient,
	}, nil
}

func newTranscriberModel(client *genai.Client, modelName string, maxOutputTokens int32) *genai.GenerativeModel {
	if modelName == "" {
		modelName = DefaultTranscriberModel
	}
	if maxOutputTokens <= 0 {
		maxOutputTokens = DefaultMaxOutputTokens
	}
	model := client.GenerativeModel(modelName)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: genai.Ptr(maxOutputTokens),
	}
	return model
}

// TranscriptionParts builds the request for one PDF: the object reference as
// file data, followed by the instruction.
func TranscriptionParts(pdfURI string) []genai.Part {
	return []genai.Part{
		genai.FileData{MIMEType: "application/pdf", FileURI: pdfURI},
		genai.Text(TranscriberPrompt),
	}
}

// Transcribe asks the model to read the PDF at pdfURI and returns its text response.
// The call is non-streaming.
func (c *VertexClient) Transcribe(ctx context.Context, pdfURI string) (string, error) {
	resp, err := c.TranscriberModel.GenerateContent(ctx, TranscriptionParts(pdfURI)...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	return ResponseText(resp)
}

// ErrEmptyResponse is returned when the model produced no text parts.
var ErrEmptyResponse = errors.New("model response contained no text")

// ResponseText returns the text of the first candidate, or an error wrapping
// ErrEmptyResponse that names the candidate's finish reason.
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if text := ExtractText(resp); text != "" {
		return text, nil
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrEmptyResponse)
	}
	return "", fmt.Errorf("%w: finish reason %v", ErrEmptyResponse, resp.Candidates[0].FinishReason)
}

// ExtractText concatenates the text parts of the first candidate.
func ExtractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			content.WriteString(string(txt))
		}
	}
	return content.String()
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
