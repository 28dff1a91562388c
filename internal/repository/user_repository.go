package repository

import (
	"readcode_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateLastLogin(userID uint) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).
		Update("last_login", time.Now()).Error
}

func (r *UserRepository) UpdateEnrolledClassCode(userID uint, classCode string) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).
		Update("enrolled_class_code", classCode).Error
}

// DeleteAccount 删除账号及其全部答题状态（汇总行、历史行级联删除）
func (r *UserRepository) DeleteAccount(userID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_ref = ?", userID).Delete(&model.UserChallengeInfo{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_ref = ?", userID).Delete(&model.UserAnswerHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_ref = ?", userID).Delete(&model.UserSession{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_ref = ?", userID).Delete(&model.Enrollee{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, userID).Error
	})
}
