package service

import (
	"errors"
	"readcode_backend/internal/model"
	"readcode_backend/internal/repository"
	"readcode_backend/internal/util"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClassService 班级生命周期：创建、加入、教师切换观察班级
type ClassService struct {
	ClassRepo   *repository.ClassRepository
	UserRepo    *repository.UserRepository
	SessionRepo *repository.SessionRepository
}

func NewClassService(classRepo *repository.ClassRepository, userRepo *repository.UserRepository, sessionRepo *repository.SessionRepository) *ClassService {
	return &ClassService{
		ClassRepo:   classRepo,
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
	}
}

// CreateClass 仅教师可建班，班级码服务端生成，保证全局唯一
func (s *ClassService) CreateClass(teacher *model.User, description string) (*model.Class, error) {
	if teacher.Role != model.Teacher && teacher.Role != model.Admin {
		return nil, util.ErrPermissionDenied
	}
	class := &model.Class{
		TeacherRef:  teacher.ID,
		ClassCode:   uuid.NewString(),
		Description: description,
		Enabled:     true,
	}
	if err := s.ClassRepo.Create(class); err != nil {
		return nil, err
	}
	return class, nil
}

// Enroll 学生凭班级码加入班级，同时把提交上报班级切换过去
func (s *ClassService) Enroll(userID uint, classCode string) error {
	class, err := s.ClassRepo.FindByCode(classCode)
	if err != nil {
		return err
	}
	enrolled, err := s.ClassRepo.IsEnrolled(class.ID, userID)
	if err != nil {
		return err
	}
	if !enrolled {
		if err := s.ClassRepo.Enroll(class.ID, userID); err != nil {
			return err
		}
	}
	return s.UserRepo.UpdateEnrolledClassCode(userID, class.ClassCode)
}

// SetActiveClass 教师在当前浏览器会话上开始观察某个班级。
// 传空串表示停止观察，该会话上的发布资格随之消失。
func (s *ClassService) SetActiveClass(teacher *model.User, sessionRef uint, classCode string) error {
	if teacher.Role != model.Teacher && teacher.Role != model.Admin {
		return util.ErrPermissionDenied
	}
	if classCode != "" {
		class, err := s.ClassRepo.FindByCode(classCode)
		if err != nil {
			return err
		}
		if class.TeacherRef != teacher.ID && teacher.Role != model.Admin {
			return util.ErrPermissionDenied
		}
	}
	return s.SessionRepo.SetActiveClassCode(sessionRef, teacher.ID, classCode)
}

// ActiveClassState 当前会话上正在观察的班级和上一个观察过的班级
type ActiveClassState struct {
	ActiveClassCode   string `json:"activeClassCode"`
	PreviousClassCode string `json:"previousClassCode"`
}

func (s *ClassService) ActiveClass(teacher *model.User, sessionRef uint) (*ActiveClassState, error) {
	if teacher.Role != model.Teacher && teacher.Role != model.Admin {
		return nil, util.ErrPermissionDenied
	}
	session, err := s.SessionRepo.FindUserSession(sessionRef, teacher.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ActiveClassState{}, nil
		}
		return nil, err
	}
	return &ActiveClassState{
		ActiveClassCode:   session.ActiveClassCode,
		PreviousClassCode: session.PreviousTeacherClassCode,
	}, nil
}
