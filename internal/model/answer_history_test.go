package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkIncorrectIsIdempotentForSameAnswer(t *testing.T) {
	h := NewChallengeHistory(`joinEnds("a", "b")`)

	h.MarkIncorrect("nope", 10)
	h.MarkIncorrect("nope", 10)
	h.MarkIncorrect("nope", 10)

	assert.False(t, h.Correct)
	assert.Equal(t, 1, h.IncorrectAttempts)
	assert.Equal(t, []string{"nope"}, h.Answers)
}

func TestMarkIncorrectCountsDistinctAnswers(t *testing.T) {
	h := NewChallengeHistory("inv")

	h.MarkIncorrect("first", 10)
	h.MarkIncorrect("second", 10)
	h.MarkIncorrect("first", 10)

	assert.Equal(t, 3, h.IncorrectAttempts)
	assert.Equal(t, []string{"first", "second", "first"}, h.Answers)
}

func TestMarkCorrectDoesNotCountAttempts(t *testing.T) {
	h := NewChallengeHistory("inv")

	h.MarkIncorrect("wrong", 10)
	h.MarkCorrect(`"right"`, 10)
	h.MarkCorrect(`"right"`, 10)

	assert.True(t, h.Correct)
	assert.Equal(t, 1, h.IncorrectAttempts)
	assert.Equal(t, []string{"wrong", `"right"`}, h.Answers)
}

func TestMarkUnansweredResetsCorrectOnly(t *testing.T) {
	h := NewChallengeHistory("inv")

	h.MarkCorrect(`"right"`, 10)
	h.MarkUnanswered()

	assert.False(t, h.Correct)
	assert.Equal(t, []string{`"right"`}, h.Answers)
}

func TestAnswerHistoryCapDropsOldest(t *testing.T) {
	h := NewChallengeHistory("inv")
	for i := 0; i < 15; i++ {
		h.MarkIncorrect(fmt.Sprintf("guess-%d", i), 10)
	}

	assert.Len(t, h.Answers, 10)
	assert.Equal(t, "guess-5", h.Answers[0])
	assert.Equal(t, "guess-14", h.Answers[9])
	assert.Equal(t, 15, h.IncorrectAttempts)
}

func TestEmptyAnswerNeverRecorded(t *testing.T) {
	h := NewChallengeHistory("inv")

	h.MarkIncorrect("", 10)
	h.MarkCorrect("", 10)

	assert.Empty(t, h.Answers)
	assert.Equal(t, 0, h.IncorrectAttempts)
}
