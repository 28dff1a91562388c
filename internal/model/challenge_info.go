package model

// Like/dislike 三态编码
const (
	LikeDislikeNone int16 = 0
	LikeSelected    int16 = 1
	DislikeSelected int16 = 2
)

// UserChallengeInfo 登录用户对某个挑战的汇总行，
// (user_ref, md5) 上唯一，幂等 upsert 维护
type UserChallengeInfo struct {
	BaseModel
	UserRef     uint   `gorm:"uniqueIndex:user_challenge_info_unique;not null" json:"userRef"`
	Md5         string `gorm:"size:32;uniqueIndex:user_challenge_info_unique;not null" json:"md5"`
	AllCorrect  bool   `json:"allCorrect"`
	LikeDislike int16  `gorm:"default:0" json:"likeDislike"`
	// 调用名 -> 最近一次原始回答 的 JSON 映射
	AnswersJSON string `gorm:"type:text" json:"answersJson"`
}

func (UserChallengeInfo) TableName() string {
	return "user_challenge_info"
}

// SessionChallengeInfo 匿名会话版本的汇总行
type SessionChallengeInfo struct {
	BaseModel
	SessionRef  uint   `gorm:"uniqueIndex:session_challenge_info_unique;not null" json:"sessionRef"`
	Md5         string `gorm:"size:32;uniqueIndex:session_challenge_info_unique;not null" json:"md5"`
	AllCorrect  bool   `json:"allCorrect"`
	LikeDislike int16  `gorm:"default:0" json:"likeDislike"`
	AnswersJSON string `gorm:"type:text" json:"answersJson"`
}

func (SessionChallengeInfo) TableName() string {
	return "session_challenge_info"
}
