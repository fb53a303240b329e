package entity

import "errors"

// Question is the boundary type for the question content collaborator.
// The scheduler never inspects content; it only passes questions through
// to the page and reports answers back for validation.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices,omitempty"`
}

// AnswerResult is the validation outcome returned by the collaborator.
type AnswerResult struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

var ErrQuestionUnavailable = errors.New("no question available")
