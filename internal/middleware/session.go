package middleware

import (
	"readcode_backend/internal/repository"
	"readcode_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionCookieName = "readcode_session"

// 浏览器会话 cookie 的有效期（秒），约一年
const sessionCookieMaxAge = 365 * 24 * 3600

// SessionMiddleware 为每个浏览器分配持久会话，匿名答题记录挂在
// 它上面。解析失败只记录告警，请求继续以无身份状态通过。
func SessionMiddleware(sessionRepo *repository.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(sessionCookieName)
		if err != nil || sessionID == "" {
			sessionID = uuid.NewString()
			c.SetCookie(sessionCookieName, sessionID, sessionCookieMaxAge, "/", "", false, true)
		}

		session, err := sessionRepo.FindOrCreateBrowserSession(sessionID)
		if err != nil {
			logger.Log.Warn("Browser session lookup failed", zap.Error(err))
			c.Next()
			return
		}

		c.Set("sessionRef", session.ID)
		c.Next()
	}
}
