package repository

import (
	"readcode_backend/internal/model"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.BrowserSession{},
		&model.UserSession{},
		&model.Class{},
		&model.Enrollee{},
		&model.UserChallengeInfo{},
		&model.SessionChallengeInfo{},
		&model.UserAnswerHistory{},
		&model.SessionAnswerHistory{},
	))
	return db
}
