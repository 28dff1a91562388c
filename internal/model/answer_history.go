package model

// ChallengeHistory 单个调用的答题历史，持久化前在内存中应用状态迁移。
// 三种迁移（正确/错误/未作答）保证幂等：重复提交同一答案不会重复累计。
type ChallengeHistory struct {
	Invocation        string   `json:"invocation"`
	Correct           bool     `json:"correct"`
	IncorrectAttempts int      `json:"incorrectAttempts"`
	Answers           []string `json:"answers"`
}

func NewChallengeHistory(invocation string) *ChallengeHistory {
	return &ChallengeHistory{Invocation: invocation}
}

func (h *ChallengeHistory) lastAnswer() (string, bool) {
	if len(h.Answers) == 0 {
		return "", false
	}
	return h.Answers[len(h.Answers)-1], true
}

// append with FIFO cap, oldest dropped first
func (h *ChallengeHistory) appendAnswer(answer string, maxLen int) {
	h.Answers = append(h.Answers, answer)
	if maxLen > 0 && len(h.Answers) > maxLen {
		h.Answers = h.Answers[len(h.Answers)-maxLen:]
	}
}

func (h *ChallengeHistory) MarkCorrect(userResponse string, maxLen int) {
	h.Correct = true
	if userResponse != "" {
		if last, ok := h.lastAnswer(); !ok || last != userResponse {
			h.appendAnswer(userResponse, maxLen)
		}
	}
}

func (h *ChallengeHistory) MarkIncorrect(userResponse string, maxLen int) {
	h.Correct = false
	if userResponse != "" {
		if last, ok := h.lastAnswer(); !ok || last != userResponse {
			h.IncorrectAttempts++
			h.appendAnswer(userResponse, maxLen)
		}
	}
}

func (h *ChallengeHistory) MarkUnanswered() {
	h.Correct = false
}

// UserAnswerHistory 登录用户逐调用的历史行，(user_ref, md5) 上唯一。
// md5 是调用级指纹，已区分同一挑战的不同调用。
type UserAnswerHistory struct {
	BaseModel
	UserRef           uint   `gorm:"uniqueIndex:user_answer_history_unique;not null" json:"userRef"`
	Md5               string `gorm:"size:32;uniqueIndex:user_answer_history_unique;not null" json:"md5"`
	Invocation        string `gorm:"size:255" json:"invocation"`
	Correct           bool   `json:"correct"`
	IncorrectAttempts int    `gorm:"default:0" json:"incorrectAttempts"`
	HistoryJSON       string `gorm:"type:text" json:"historyJson"`
}

func (UserAnswerHistory) TableName() string {
	return "user_answer_history"
}

// SessionAnswerHistory 匿名会话版本的历史行
type SessionAnswerHistory struct {
	BaseModel
	SessionRef        uint   `gorm:"uniqueIndex:session_answer_history_unique;not null" json:"sessionRef"`
	Md5               string `gorm:"size:32;uniqueIndex:session_answer_history_unique;not null" json:"md5"`
	Invocation        string `gorm:"size:255" json:"invocation"`
	Correct           bool   `json:"correct"`
	IncorrectAttempts int    `gorm:"default:0" json:"incorrectAttempts"`
	HistoryJSON       string `gorm:"type:text" json:"historyJson"`
}

func (SessionAnswerHistory) TableName() string {
	return "session_answer_history"
}
