package repository

import (
	"errors"
	"readcode_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChallengeInfoRepository 维护每个身份对每个挑战的汇总行。
// (身份, md5) 上唯一，所有写入都是幂等 upsert；保存答案与保存
// like/dislike 的更新列互不覆盖。
type ChallengeInfoRepository struct {
	DB *gorm.DB
}

func NewChallengeInfoRepository(db *gorm.DB) *ChallengeInfoRepository {
	return &ChallengeInfoRepository{DB: db}
}

// WithTx 返回绑定到事务的副本，供整次提交的原子写入使用
func (r *ChallengeInfoRepository) WithTx(tx *gorm.DB) *ChallengeInfoRepository {
	return &ChallengeInfoRepository{DB: tx}
}

func (r *ChallengeInfoRepository) UpsertAnswers(identity model.Identity, md5 string, allCorrect bool, answersJSON string) error {
	updates := clause.AssignmentColumns([]string{"all_correct", "answers_json", "updated_at"})
	if identity.IsUser() {
		row := model.UserChallengeInfo{
			UserRef:     identity.UserID,
			Md5:         md5,
			AllCorrect:  allCorrect,
			AnswersJSON: answersJSON,
		}
		return r.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_ref"}, {Name: "md5"}},
			DoUpdates: updates,
		}).Create(&row).Error
	}
	row := model.SessionChallengeInfo{
		SessionRef:  identity.SessionRef,
		Md5:         md5,
		AllCorrect:  allCorrect,
		AnswersJSON: answersJSON,
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_ref"}, {Name: "md5"}},
		DoUpdates: updates,
	}).Create(&row).Error
}

func (r *ChallengeInfoRepository) UpsertLikeDislike(identity model.Identity, md5 string, likeDislike int16) error {
	updates := clause.AssignmentColumns([]string{"like_dislike", "updated_at"})
	if identity.IsUser() {
		row := model.UserChallengeInfo{
			UserRef:     identity.UserID,
			Md5:         md5,
			LikeDislike: likeDislike,
		}
		return r.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_ref"}, {Name: "md5"}},
			DoUpdates: updates,
		}).Create(&row).Error
	}
	row := model.SessionChallengeInfo{
		SessionRef:  identity.SessionRef,
		Md5:         md5,
		LikeDislike: likeDislike,
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_ref"}, {Name: "md5"}},
		DoUpdates: updates,
	}).Create(&row).Error
}

func (r *ChallengeInfoRepository) FindFor(identity model.Identity, md5 string) (allCorrect bool, likeDislike int16, answersJSON string, err error) {
	if identity.IsUser() {
		var row model.UserChallengeInfo
		err = r.DB.Where("user_ref = ? AND md5 = ?", identity.UserID, md5).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, model.LikeDislikeNone, "", nil
			}
			return false, 0, "", err
		}
		return row.AllCorrect, row.LikeDislike, row.AnswersJSON, nil
	}
	var row model.SessionChallengeInfo
	err = r.DB.Where("session_ref = ? AND md5 = ?", identity.SessionRef, md5).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, model.LikeDislikeNone, "", nil
		}
		return false, 0, "", err
	}
	return row.AllCorrect, row.LikeDislike, row.AnswersJSON, nil
}

// DeleteFor 清除某身份对某挑战的汇总行（答题记录清空功能）
func (r *ChallengeInfoRepository) DeleteFor(identity model.Identity, md5 string) (int64, error) {
	if identity.IsUser() {
		res := r.DB.Where("user_ref = ? AND md5 = ?", identity.UserID, md5).
			Delete(&model.UserChallengeInfo{})
		return res.RowsAffected, res.Error
	}
	res := r.DB.Where("session_ref = ? AND md5 = ?", identity.SessionRef, md5).
		Delete(&model.SessionChallengeInfo{})
	return res.RowsAffected, res.Error
}
