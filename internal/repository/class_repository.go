package repository

import (
	"errors"
	"readcode_backend/internal/model"
	"readcode_backend/internal/util"
	"sync"

	"gorm.io/gorm"
)

type ClassRepository struct {
	DB *gorm.DB
	// classCode -> teacher user id，班级归属不可变，可安全缓存
	teacherCache sync.Map
}

func NewClassRepository(db *gorm.DB) *ClassRepository {
	return &ClassRepository{DB: db}
}

func (r *ClassRepository) Create(class *model.Class) error {
	return r.DB.Create(class).Error
}

func (r *ClassRepository) FindByCode(classCode string) (*model.Class, error) {
	var class model.Class
	err := r.DB.Where("class_code = ?", classCode).First(&class).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrClassNotFound
		}
		return nil, err
	}
	return &class, nil
}

// TeacherIDForCode 班级码对应的教师 id，发布资格检查的热路径，走进程内缓存
func (r *ClassRepository) TeacherIDForCode(classCode string) (uint, error) {
	if v, ok := r.teacherCache.Load(classCode); ok {
		return v.(uint), nil
	}
	class, err := r.FindByCode(classCode)
	if err != nil {
		return 0, err
	}
	r.teacherCache.Store(classCode, class.TeacherRef)
	return class.TeacherRef, nil
}

func (r *ClassRepository) Enroll(classRef, userRef uint) error {
	return r.DB.Create(&model.Enrollee{ClassRef: classRef, UserRef: userRef}).Error
}

func (r *ClassRepository) IsEnrolled(classRef, userRef uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Enrollee{}).
		Where("class_ref = ? AND user_ref = ?", classRef, userRef).
		Count(&count).Error
	return count > 0, err
}
