package repository

import (
	"readcode_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnswerHistoryRepository(db)
	identity := model.UserIdentity(1)
	const md5 = "fingerprint"

	history, err := repo.LoadOrNew(identity, md5, "f(1)")
	require.NoError(t, err)
	assert.False(t, history.Correct)
	assert.Empty(t, history.Answers)

	history.MarkIncorrect("2", 10)
	require.NoError(t, repo.Upsert(identity, md5, history))

	loaded, err := repo.LoadOrNew(identity, md5, "f(1)")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.IncorrectAttempts)
	assert.Equal(t, []string{"2"}, loaded.Answers)

	// 同一错误答案重复提交不重复计数
	loaded.MarkIncorrect("2", 10)
	require.NoError(t, repo.Upsert(identity, md5, loaded))

	reloaded, err := repo.LoadOrNew(identity, md5, "f(1)")
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.IncorrectAttempts)
	assert.Equal(t, []string{"2"}, reloaded.Answers)

	var count int64
	db.Model(&model.UserAnswerHistory{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestHistoryCorrectTransitionPersists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnswerHistoryRepository(db)
	identity := model.SessionIdentity(2)
	const md5 = "fingerprint"

	history, err := repo.LoadOrNew(identity, md5, "f(1)")
	require.NoError(t, err)
	history.MarkIncorrect("4", 10)
	history.MarkCorrect("3", 10)
	require.NoError(t, repo.Upsert(identity, md5, history))

	loaded, err := repo.LoadOrNew(identity, md5, "f(1)")
	require.NoError(t, err)
	assert.True(t, loaded.Correct)
	assert.Equal(t, 1, loaded.IncorrectAttempts)
	assert.Equal(t, []string{"4", "3"}, loaded.Answers)
}

func TestHistoryDeleteFor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnswerHistoryRepository(db)
	identity := model.UserIdentity(1)

	for _, md5 := range []string{"one", "two", "three"} {
		history, err := repo.LoadOrNew(identity, md5, "f(1)")
		require.NoError(t, err)
		history.MarkCorrect("1", 10)
		require.NoError(t, repo.Upsert(identity, md5, history))
	}

	deleted, err := repo.DeleteFor(identity, []string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	deleted, err = repo.DeleteFor(identity, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	var count int64
	db.Model(&model.UserAnswerHistory{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
