package repository

import (
	"errors"
	"readcode_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// FindOrCreateBrowserSession 按 cookie 中的会话标识查找匿名会话，
// 不存在则创建，返回其数据库主键作为持久化分区键
func (r *SessionRepository) FindOrCreateBrowserSession(sessionID string) (*model.BrowserSession, error) {
	var session model.BrowserSession
	err := r.DB.Where("session_id = ?", sessionID).First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	session = model.BrowserSession{SessionID: sessionID}
	if err := r.DB.Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// UpsertUserSession 记录登录用户在某个浏览器会话上的状态行
func (r *SessionRepository) UpsertUserSession(sessionRef, userRef uint) error {
	row := model.UserSession{SessionRef: sessionRef, UserRef: userRef}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_ref"}, {Name: "user_ref"}},
		DoNothing: true,
	}).Create(&row).Error
}

// FindUserSession 查找登录用户在某个浏览器会话上的状态行
func (r *SessionRepository) FindUserSession(sessionRef, userRef uint) (*model.UserSession, error) {
	var session model.UserSession
	err := r.DB.Where("session_ref = ? AND user_ref = ?", sessionRef, userRef).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SetActiveClassCode 教师在当前浏览器会话上切换正在观察的班级。
// 切换或停止观察时把上一个班级码留在 previous_teacher_class_code，
// 教师端导航可以据此回到刚才观察的班级。
func (r *SessionRepository) SetActiveClassCode(sessionRef, userRef uint, classCode string) error {
	previous := ""
	existing, err := r.FindUserSession(sessionRef, userRef)
	if err == nil {
		previous = existing.PreviousTeacherClassCode
		if existing.ActiveClassCode != "" && existing.ActiveClassCode != classCode {
			previous = existing.ActiveClassCode
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	row := model.UserSession{
		SessionRef:               sessionRef,
		UserRef:                  userRef,
		ActiveClassCode:          classCode,
		PreviousTeacherClassCode: previous,
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_ref"}, {Name: "user_ref"}},
		DoUpdates: clause.AssignmentColumns([]string{"active_class_code", "previous_teacher_class_code", "updated_at"}),
	}).Create(&row).Error
}

// HasActiveClass 教师是否在至少一个在线会话上把该班级设为当前观察对象
func (r *SessionRepository) HasActiveClass(teacherID uint, classCode string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.UserSession{}).
		Where("user_ref = ? AND active_class_code = ?", teacherID, classCode).
		Count(&count).Error
	return count > 0, err
}
