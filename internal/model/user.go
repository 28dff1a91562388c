package model

import "time"

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;unique;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"size:20;default:'student'" json:"role"`
	// 学生模式下提交结果上报到的班级码，空串表示未加入任何班级
	EnrolledClassCode string    `gorm:"size:40;index" json:"enrolledClassCode"`
	DefaultLanguage   string    `gorm:"size:20;default:'java'" json:"defaultLanguage"`
	LastLogin         time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}
