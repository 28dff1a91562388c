package repository

import (
	"encoding/json"
	"errors"
	"readcode_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnswerHistoryRepository 维护逐调用的答题历史行。
// md5 是调用级指纹，(身份, md5) 上唯一。
type AnswerHistoryRepository struct {
	DB *gorm.DB
}

func NewAnswerHistoryRepository(db *gorm.DB) *AnswerHistoryRepository {
	return &AnswerHistoryRepository{DB: db}
}

func (r *AnswerHistoryRepository) WithTx(tx *gorm.DB) *AnswerHistoryRepository {
	return &AnswerHistoryRepository{DB: tx}
}

// LoadOrNew 取出某调用的历史并解码，不存在则返回全新历史。
// 状态迁移在内存中的 ChallengeHistory 上应用，然后整行写回。
func (r *AnswerHistoryRepository) LoadOrNew(identity model.Identity, md5, invocation string) (*model.ChallengeHistory, error) {
	var (
		correct           bool
		incorrectAttempts int
		historyJSON       string
		err               error
	)
	if identity.IsUser() {
		var row model.UserAnswerHistory
		err = r.DB.Where("user_ref = ? AND md5 = ?", identity.UserID, md5).First(&row).Error
		correct, incorrectAttempts, historyJSON = row.Correct, row.IncorrectAttempts, row.HistoryJSON
	} else {
		var row model.SessionAnswerHistory
		err = r.DB.Where("session_ref = ? AND md5 = ?", identity.SessionRef, md5).First(&row).Error
		correct, incorrectAttempts, historyJSON = row.Correct, row.IncorrectAttempts, row.HistoryJSON
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.NewChallengeHistory(invocation), nil
		}
		return nil, err
	}

	history := &model.ChallengeHistory{
		Invocation:        invocation,
		Correct:           correct,
		IncorrectAttempts: incorrectAttempts,
	}
	if historyJSON != "" {
		if err := json.Unmarshal([]byte(historyJSON), &history.Answers); err != nil {
			return nil, err
		}
	}
	return history, nil
}

func (r *AnswerHistoryRepository) Upsert(identity model.Identity, md5 string, history *model.ChallengeHistory) error {
	answers := history.Answers
	if answers == nil {
		answers = []string{}
	}
	historyJSON, err := json.Marshal(answers)
	if err != nil {
		return err
	}

	updates := clause.AssignmentColumns([]string{"invocation", "correct", "incorrect_attempts", "history_json", "updated_at"})
	if identity.IsUser() {
		row := model.UserAnswerHistory{
			UserRef:           identity.UserID,
			Md5:               md5,
			Invocation:        history.Invocation,
			Correct:           history.Correct,
			IncorrectAttempts: history.IncorrectAttempts,
			HistoryJSON:       string(historyJSON),
		}
		return r.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_ref"}, {Name: "md5"}},
			DoUpdates: updates,
		}).Create(&row).Error
	}
	row := model.SessionAnswerHistory{
		SessionRef:        identity.SessionRef,
		Md5:               md5,
		Invocation:        history.Invocation,
		Correct:           history.Correct,
		IncorrectAttempts: history.IncorrectAttempts,
		HistoryJSON:       string(historyJSON),
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_ref"}, {Name: "md5"}},
		DoUpdates: updates,
	}).Create(&row).Error
}

// DeleteFor 清除某身份在给定调用指纹集合上的历史行
func (r *AnswerHistoryRepository) DeleteFor(identity model.Identity, md5s []string) (int64, error) {
	if len(md5s) == 0 {
		return 0, nil
	}
	if identity.IsUser() {
		res := r.DB.Where("user_ref = ? AND md5 IN ?", identity.UserID, md5s).
			Delete(&model.UserAnswerHistory{})
		return res.RowsAffected, res.Error
	}
	res := r.DB.Where("session_ref = ? AND md5 IN ?", identity.SessionRef, md5s).
		Delete(&model.SessionAnswerHistory{})
	return res.RowsAffected, res.Error
}
