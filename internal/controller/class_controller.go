package controller

import (
	"errors"
	"readcode_backend/internal/service"
	"readcode_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ClassController struct {
	ClassService *service.ClassService
	AuthService  *service.AuthService
}

func NewClassController(classService *service.ClassService, authService *service.AuthService) *ClassController {
	return &ClassController{
		ClassService: classService,
		AuthService:  authService,
	}
}

type CreateClassRequest struct {
	Description string `json:"description" binding:"required"`
}

func (c *ClassController) CreateClass(ctx *gin.Context) {
	var req CreateClassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	class, err := c.ClassService.CreateClass(user, req.Description)
	if err != nil {
		if errors.Is(err, util.ErrPermissionDenied) {
			util.Forbidden(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, class)
}

type EnrollRequest struct {
	ClassCode string `json:"classCode" binding:"required"`
}

func (c *ClassController) Enroll(ctx *gin.Context) {
	var req EnrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.ClassService.Enroll(claims.UserID, req.ClassCode); err != nil {
		if errors.Is(err, util.ErrClassNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

type ActiveClassRequest struct {
	ClassCode string `json:"classCode"`
}

// SetActiveClass 教师在当前浏览器会话上切换观察的班级，
// 空班级码表示停止观察
func (c *ClassController) SetActiveClass(ctx *gin.Context) {
	var req ActiveClassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	sessionRef := browserSessionRef(ctx)
	if sessionRef == 0 {
		util.BadRequest(ctx, "no browser session on request")
		return
	}

	if err := c.ClassService.SetActiveClass(user, sessionRef, req.ClassCode); err != nil {
		switch {
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrClassNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

func browserSessionRef(ctx *gin.Context) uint {
	if ref, exists := ctx.Get("sessionRef"); exists {
		if id, ok := ref.(uint); ok {
			return id
		}
	}
	return 0
}

// GetActiveClass 当前会话上的观察状态，含上一个观察过的班级码，
// 教师端导航用它回到刚才观察的班级
func (c *ClassController) GetActiveClass(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	sessionRef := browserSessionRef(ctx)
	if sessionRef == 0 {
		util.BadRequest(ctx, "no browser session on request")
		return
	}

	state, err := c.ClassService.ActiveClass(user, sessionRef)
	if err != nil {
		if errors.Is(err, util.ErrPermissionDenied) {
			util.Forbidden(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, state)
}
