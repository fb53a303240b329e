package questions_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordgate/wordgate/internal/questions"
)

func TestStaticProvider_QuestionRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := questions.NewStaticProvider(1)

	q, err := p.NextQuestion(ctx, questions.FilterCriteria{})
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.NotEmpty(t, q.ID)
	assert.NotEmpty(t, q.Prompt)
	require.Len(t, q.Choices, 4)

	// Exactly one of the offered choices validates as correct.
	correct := 0
	for _, choice := range q.Choices {
		result, err := p.ValidateAnswer(ctx, q.ID, choice)
		require.NoError(t, err)
		if result.IsCorrect {
			correct++
			assert.Equal(t, choice, result.CorrectAnswer)
		} else {
			assert.NotEmpty(t, result.Explanation)
		}
	}
	assert.Equal(t, 1, correct)
}

func TestStaticProvider_UnknownQuestionID(t *testing.T) {
	p := questions.NewStaticProvider(1)

	_, err := p.ValidateAnswer(context.Background(), "static:9999", "whatever")
	assert.Error(t, err)

	_, err = p.ValidateAnswer(context.Background(), "bogus", "whatever")
	assert.Error(t, err)
}
