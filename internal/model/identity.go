package model

// Identity 持久化分区键：登录用户 id 或匿名会话 id，二者恰有其一。
// 两者都为零值说明请求管线出了问题，记录层只告警不报错。
type Identity struct {
	UserID     uint `json:"userId"`
	SessionRef uint `json:"sessionRef"`
}

func UserIdentity(userID uint) Identity {
	return Identity{UserID: userID}
}

func SessionIdentity(sessionRef uint) Identity {
	return Identity{SessionRef: sessionRef}
}

func (i Identity) IsUser() bool {
	return i.UserID != 0
}

func (i Identity) IsSession() bool {
	return i.UserID == 0 && i.SessionRef != 0
}

func (i Identity) Valid() bool {
	return i.IsUser() || i.IsSession()
}
