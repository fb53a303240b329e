// Package questions defines the question content collaborator boundary.
// The scheduler core treats providers as external: any failure leaves tab
// state untouched and is surfaced to the caller, never crashing the core.
package questions

//go:generate mockgen -source=provider.go -destination=mocks/mock_provider.go -package=mock_questions

import (
	"context"

	"github.com/wordgate/wordgate/internal/domain/entity"
)

// FilterCriteria narrows question selection. Zero value means "any".
type FilterCriteria struct {
	Category   string
	Difficulty string
}

// Provider supplies questions and validates answers.
type Provider interface {
	// NextQuestion returns the next question matching the criteria, or
	// entity.ErrQuestionUnavailable when none can be supplied.
	NextQuestion(ctx context.Context, criteria FilterCriteria) (*entity.Question, error)
	// ValidateAnswer checks a submitted answer against the question.
	ValidateAnswer(ctx context.Context, questionID, answer string) (*entity.AnswerResult, error)
}
