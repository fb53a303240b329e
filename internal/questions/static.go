package questions

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/wordgate/wordgate/internal/domain/entity"
)

// vocabEntry is one word/definition pair in the embedded starter bank.
type vocabEntry struct {
	Word       string
	Definition string
}

// starterBank is a small built-in vocabulary so a fresh install works
// before any external content source is configured.
var starterBank = []vocabEntry{
	{"ephemeral", "lasting for a very short time"},
	{"gregarious", "fond of company; sociable"},
	{"laconic", "using very few words"},
	{"obdurate", "stubbornly refusing to change one's opinion"},
	{"perfunctory", "carried out with a minimum of effort"},
	{"quixotic", "exceedingly idealistic; unrealistic"},
	{"reticent", "not revealing one's thoughts readily"},
	{"sagacious", "having keen judgment"},
	{"truculent", "eager to argue or fight"},
	{"ubiquitous", "present or found everywhere"},
}

const choiceCount = 4

// StaticProvider serves questions from the embedded bank. Safe for
// concurrent use; selection state is guarded by a mutex.
type StaticProvider struct {
	mu      sync.Mutex
	rng     *rand.Rand
	entries []vocabEntry
}

// NewStaticProvider creates a provider over the embedded starter bank.
func NewStaticProvider(seed int64) *StaticProvider {
	return &StaticProvider{
		rng:     rand.New(rand.NewSource(seed)),
		entries: starterBank,
	}
}

// NextQuestion picks a random word and builds a multiple-choice question.
// Question IDs encode the entry index so validation needs no session state.
func (p *StaticProvider) NextQuestion(_ context.Context, _ FilterCriteria) (*entity.Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) < choiceCount {
		return nil, entity.ErrQuestionUnavailable
	}

	idx := p.rng.Intn(len(p.entries))
	target := p.entries[idx]

	choices := []string{target.Definition}
	for _, j := range p.rng.Perm(len(p.entries)) {
		if len(choices) == choiceCount {
			break
		}
		if j != idx {
			choices = append(choices, p.entries[j].Definition)
		}
	}
	p.rng.Shuffle(len(choices), func(a, b int) {
		choices[a], choices[b] = choices[b], choices[a]
	})

	return &entity.Question{
		ID:      fmt.Sprintf("static:%d", idx),
		Prompt:  fmt.Sprintf("What does %q mean?", target.Word),
		Choices: choices,
	}, nil
}

// ValidateAnswer checks the submitted definition against the bank.
func (p *StaticProvider) ValidateAnswer(_ context.Context, questionID, answer string) (*entity.AnswerResult, error) {
	var idx int
	if _, err := fmt.Sscanf(questionID, "static:%d", &idx); err != nil || idx < 0 || idx >= len(starterBank) {
		return nil, fmt.Errorf("unknown question id %q", questionID)
	}

	entry := starterBank[idx]
	correct := strings.EqualFold(strings.TrimSpace(answer), entry.Definition)
	result := &entity.AnswerResult{
		IsCorrect:     correct,
		CorrectAnswer: entry.Definition,
	}
	if !correct {
		result.Explanation = fmt.Sprintf("%q means: %s", entry.Word, entry.Definition)
	}
	return result, nil
}
