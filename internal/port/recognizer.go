package port

import (
	"context"

	"tallyocr/internal/domain"
)

// RecognizeInput carries the data needed for page recognition.
type RecognizeInput struct {
	ImageBytes  []byte
	ContentType string
}

// RecognizeOutput contains the structured result from the vision model.
type RecognizeOutput struct {
	Document  *domain.RecognizedDocument
	ModelUsed string
}

// Recognizer abstracts vision-model extraction of tally sheet pages.
type Recognizer interface {
	Recognize(ctx context.Context, input RecognizeInput) (*RecognizeOutput, error)
}
