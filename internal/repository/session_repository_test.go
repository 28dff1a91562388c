package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateBrowserSessionReturnsSameRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)

	first, err := repo.FindOrCreateBrowserSession("cookie-uuid")
	require.NoError(t, err)
	second, err := repo.FindOrCreateBrowserSession("cookie-uuid")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := repo.FindOrCreateBrowserSession("another-uuid")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestActiveClassLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)

	require.NoError(t, repo.UpsertUserSession(1, 10))
	require.NoError(t, repo.UpsertUserSession(1, 10))

	active, err := repo.HasActiveClass(10, "class-a")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, repo.SetActiveClassCode(1, 10, "class-a"))
	active, err = repo.HasActiveClass(10, "class-a")
	require.NoError(t, err)
	assert.True(t, active)

	// 切换到别的班级后原班级不再活跃
	require.NoError(t, repo.SetActiveClassCode(1, 10, "class-b"))
	active, err = repo.HasActiveClass(10, "class-a")
	require.NoError(t, err)
	assert.False(t, active)

	// 停止观察
	require.NoError(t, repo.SetActiveClassCode(1, 10, ""))
	active, err = repo.HasActiveClass(10, "class-b")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestPreviousTeacherClassCodeTracksSwitches(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)

	require.NoError(t, repo.SetActiveClassCode(1, 10, "class-a"))
	session, err := repo.FindUserSession(1, 10)
	require.NoError(t, err)
	assert.Empty(t, session.PreviousTeacherClassCode)

	require.NoError(t, repo.SetActiveClassCode(1, 10, "class-b"))
	session, err = repo.FindUserSession(1, 10)
	require.NoError(t, err)
	assert.Equal(t, "class-a", session.PreviousTeacherClassCode)

	// 重复设置同一个班级不覆盖上一个班级码
	require.NoError(t, repo.SetActiveClassCode(1, 10, "class-b"))
	session, err = repo.FindUserSession(1, 10)
	require.NoError(t, err)
	assert.Equal(t, "class-a", session.PreviousTeacherClassCode)

	// 停止观察后仍能回到刚才观察的班级
	require.NoError(t, repo.SetActiveClassCode(1, 10, ""))
	session, err = repo.FindUserSession(1, 10)
	require.NoError(t, err)
	assert.Empty(t, session.ActiveClassCode)
	assert.Equal(t, "class-b", session.PreviousTeacherClassCode)
}
