package repository

import (
	"readcode_backend/internal/model"
	"readcode_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassLookup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClassRepository(db)

	require.NoError(t, repo.Create(&model.Class{TeacherRef: 5, ClassCode: "class-a", Enabled: true}))

	class, err := repo.FindByCode("class-a")
	require.NoError(t, err)
	assert.Equal(t, uint(5), class.TeacherRef)

	_, err = repo.FindByCode("missing")
	assert.ErrorIs(t, err, util.ErrClassNotFound)
}

func TestTeacherIDForCodeUsesCache(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClassRepository(db)

	require.NoError(t, repo.Create(&model.Class{TeacherRef: 5, ClassCode: "class-a", Enabled: true}))

	id, err := repo.TeacherIDForCode("class-a")
	require.NoError(t, err)
	assert.Equal(t, uint(5), id)

	// 行删掉之后缓存仍然命中
	require.NoError(t, db.Unscoped().Where("class_code = ?", "class-a").Delete(&model.Class{}).Error)
	id, err = repo.TeacherIDForCode("class-a")
	require.NoError(t, err)
	assert.Equal(t, uint(5), id)
}

func TestEnrollment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClassRepository(db)

	require.NoError(t, repo.Create(&model.Class{TeacherRef: 5, ClassCode: "class-a", Enabled: true}))
	class, err := repo.FindByCode("class-a")
	require.NoError(t, err)

	enrolled, err := repo.IsEnrolled(class.ID, 7)
	require.NoError(t, err)
	assert.False(t, enrolled)

	require.NoError(t, repo.Enroll(class.ID, 7))
	enrolled, err = repo.IsEnrolled(class.ID, 7)
	require.NoError(t, err)
	assert.True(t, enrolled)
}
