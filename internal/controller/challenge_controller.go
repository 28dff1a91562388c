package controller

import (
	"errors"
	"readcode_backend/internal/model"
	"readcode_backend/internal/service"
	"readcode_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChallengeController struct {
	AnswerService *service.AnswerService
	Content       *service.ContentService
}

func NewChallengeController(answerService *service.AnswerService, content *service.ContentService) *ChallengeController {
	return &ChallengeController{
		AnswerService: answerService,
		Content:       content,
	}
}

type CheckAnswersRequest struct {
	Language  string   `json:"language" binding:"required"`
	Group     string   `json:"group" binding:"required"`
	Challenge string   `json:"challenge" binding:"required"`
	Answers   []string `json:"answers"`
}

type CheckedAnswer struct {
	Invocation string `json:"invocation"`
	Status     int    `json:"status"`
	Hint       string `json:"hint"`
}

// CheckAnswers 判定一次提交，返回与调用顺序对应的结果数组。
// 状态编码：0 未作答 1 正确 2 错误。
func (c *ChallengeController) CheckAnswers(ctx *gin.Context) {
	var req CheckAnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	names, err := challengeNames(req.Language, req.Group, req.Challenge)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	identity := util.GetIdentity(ctx)
	results, err := c.AnswerService.CheckAnswers(ctx.Request.Context(), identity, names, req.Answers)
	if err != nil {
		if errors.Is(err, util.ErrChallengeNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	checked := make([]CheckedAnswer, len(results))
	for i, r := range results {
		checked[i] = CheckedAnswer{
			Invocation: r.Invocation,
			Status:     int(r.Status()),
			Hint:       r.Hint,
		}
	}
	util.Success(ctx, checked)
}

type LikeDislikeRequest struct {
	Language    string `json:"language" binding:"required"`
	Group       string `json:"group" binding:"required"`
	Challenge   string `json:"challenge" binding:"required"`
	LikeDislike int16  `json:"likeDislike"`
}

func (c *ChallengeController) SaveLikeDislike(ctx *gin.Context) {
	var req LikeDislikeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	names, err := challengeNames(req.Language, req.Group, req.Challenge)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	identity := util.GetIdentity(ctx)
	if err := c.AnswerService.SaveLikeDislike(identity, names, req.LikeDislike); err != nil {
		switch {
		case errors.Is(err, util.ErrChallengeNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidLikeDislike):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

type ClearAnswersRequest struct {
	Language  string `json:"language" binding:"required"`
	Group     string `json:"group" binding:"required"`
	Challenge string `json:"challenge"`
}

// ClearAnswers 清空当前身份的答题状态。带 challenge 时清单个挑战，
// 不带时清整个挑战组。
func (c *ChallengeController) ClearAnswers(ctx *gin.Context) {
	var req ClearAnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	language := model.LanguageName(req.Language)
	if !language.Valid() {
		util.BadRequest(ctx, util.ErrInvalidLanguage.Error())
		return
	}

	identity := util.GetIdentity(ctx)
	var err error
	if req.Challenge != "" {
		names := model.ChallengeNames{Language: language, Group: req.Group, Challenge: req.Challenge}
		err = c.AnswerService.ClearChallengeAnswers(identity, names)
	} else {
		err = c.AnswerService.ClearGroupAnswers(identity, language, req.Group)
	}
	if err != nil {
		if errors.Is(err, util.ErrChallengeNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// GetChallengeState 回填某身份对单个挑战的当前状态
func (c *ChallengeController) GetChallengeState(ctx *gin.Context) {
	names, err := challengeNames(ctx.Param("language"), ctx.Param("group"), ctx.Param("challenge"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	identity := util.GetIdentity(ctx)
	state, err := c.AnswerService.ChallengeStateFor(identity, names)
	if err != nil {
		if errors.Is(err, util.ErrChallengeNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, state)
}

func challengeNames(language, group, challenge string) (model.ChallengeNames, error) {
	lang := model.LanguageName(language)
	if !lang.Valid() {
		return model.ChallengeNames{}, util.ErrInvalidLanguage
	}
	return model.ChallengeNames{Language: lang, Group: group, Challenge: challenge}, nil
}
