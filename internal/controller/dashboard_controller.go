package controller

import (
	"errors"
	"readcode_backend/internal/model"
	"readcode_backend/internal/repository"
	"readcode_backend/internal/service"
	"readcode_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// DashboardController 教师实时看板的 WebSocket 入口
type DashboardController struct {
	Hub       *service.DashboardHub
	ClassRepo *repository.ClassRepository
}

func NewDashboardController(hub *service.DashboardHub, classRepo *repository.ClassRepository) *DashboardController {
	return &DashboardController{Hub: hub, ClassRepo: classRepo}
}

// AnswersWs 订阅某班级某挑战的实时答题流。
// 连接升级后由客户端发送首帧激活订阅，主题来自路径参数。
// 只有班级归属的教师（或管理员）可以订阅。
func (c *DashboardController) AnswersWs(ctx *gin.Context) {
	classCode := ctx.Param("classCode")
	challengeMd5 := ctx.Param("challengeMd5")
	if classCode == "" || challengeMd5 == "" {
		util.BadRequest(ctx, "classCode and challengeMd5 are required")
		return
	}

	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	teacherID, err := c.ClassRepo.TeacherIDForCode(classCode)
	if err != nil {
		if errors.Is(err, util.ErrClassNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	if teacherID != claims.UserID && claims.Role != model.Admin {
		util.Forbidden(ctx)
		return
	}

	service.ServeDashboardWs(c.Hub, ctx.Writer, ctx.Request, classCode, challengeMd5)
}
