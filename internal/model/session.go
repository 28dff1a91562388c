package model

// BrowserSession 匿名浏览器会话，未登录用户的答题记录挂在它上面
type BrowserSession struct {
	BaseModel
	SessionID string `gorm:"size:36;uniqueIndex;not null" json:"sessionId"`
}

func (BrowserSession) TableName() string {
	return "browser_sessions"
}

// UserSession 登录用户在某个浏览器会话上的状态。
// ActiveClassCode 是教师模式下正在观察的班级码，按浏览器会话区分，
// 同一教师可以在不同会话上观察不同班级。
type UserSession struct {
	BaseModel
	SessionRef               uint   `gorm:"uniqueIndex:user_sessions_unique;not null" json:"sessionRef"`
	UserRef                  uint   `gorm:"uniqueIndex:user_sessions_unique;not null" json:"userRef"`
	ActiveClassCode          string `gorm:"size:40;index" json:"activeClassCode"`
	PreviousTeacherClassCode string `gorm:"size:40" json:"previousTeacherClassCode"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}
