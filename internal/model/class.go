package model

// Class 教师创建的班级，ClassCode 是对外分发给学生的邀请码
type Class struct {
	BaseModel
	TeacherRef  uint   `gorm:"index;not null" json:"teacherRef"`
	ClassCode   string `gorm:"size:40;uniqueIndex;not null" json:"classCode"`
	Description string `gorm:"size:255" json:"description"`
	Enabled     bool   `gorm:"default:true" json:"enabled"`
}

func (Class) TableName() string {
	return "classes"
}

type Enrollee struct {
	BaseModel
	ClassRef uint `gorm:"uniqueIndex:enrollees_unique;not null" json:"classRef"`
	UserRef  uint `gorm:"uniqueIndex:enrollees_unique;not null" json:"userRef"`
}

func (Enrollee) TableName() string {
	return "enrollees"
}
