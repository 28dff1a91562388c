package controller

import (
	"errors"
	"readcode_backend/internal/model"
	"readcode_backend/internal/service"
	"readcode_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ContentController 只读的挑战内容目录
type ContentController struct {
	Content *service.ContentService
}

func NewContentController(content *service.ContentService) *ContentController {
	return &ContentController{Content: content}
}

func (c *ContentController) ListGroups(ctx *gin.Context) {
	language := model.LanguageName(ctx.Param("language"))
	if !language.Valid() {
		util.BadRequest(ctx, util.ErrInvalidLanguage.Error())
		return
	}
	util.Success(ctx, gin.H{"groups": c.Content.GroupNames(language)})
}

type challengeSummary struct {
	Name        string `json:"name"`
	Md5         string `json:"md5"`
	ReturnType  string `json:"returnType"`
	Invocations int    `json:"invocations"`
}

func (c *ContentController) ListChallenges(ctx *gin.Context) {
	language := model.LanguageName(ctx.Param("language"))
	if !language.Valid() {
		util.BadRequest(ctx, util.ErrInvalidLanguage.Error())
		return
	}
	challenges := c.Content.ChallengesInGroup(language, ctx.Param("group"))
	if len(challenges) == 0 {
		util.NotFound(ctx)
		return
	}

	summaries := make([]challengeSummary, len(challenges))
	for i, info := range challenges {
		summaries[i] = challengeSummary{
			Name:        info.Names.Challenge,
			Md5:         info.Names.Md5(),
			ReturnType:  string(info.ReturnType),
			Invocations: len(info.Invocations),
		}
	}
	util.Success(ctx, summaries)
}

// GetChallenge 单个挑战的调用列表，参考答案不出网
func (c *ContentController) GetChallenge(ctx *gin.Context) {
	names, err := challengeNames(ctx.Param("language"), ctx.Param("group"), ctx.Param("challenge"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	info, err := c.Content.FindFunctionInfo(names)
	if err != nil {
		if errors.Is(err, util.ErrChallengeNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{
		"names":       info.Names,
		"md5":         info.Names.Md5(),
		"returnType":  info.ReturnType,
		"invocations": info.Invocations,
	})
}
