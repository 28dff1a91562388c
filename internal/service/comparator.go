package service

import (
	"context"
	"errors"
	"readcode_backend/internal/model"
	"readcode_backend/internal/util"
	"readcode_backend/pkg/logger"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	bracketHint         = "Answer should be bracketed"
	evalUnavailableHint = "Evaluation unavailable"
)

// Comparator 判定提交的字面量与参考答案是否等价，并在不等价时给出
// 面向学习者的提示。标量在本地比较；带括号的集合改写成目标语言族的
// 字面量相等表达式后交给对应的求值器池。
type Comparator struct {
	jvmPool    *EvaluatorPool
	pythonPool *EvaluatorPool
}

func NewComparator(jvmPool, pythonPool *EvaluatorPool) *Comparator {
	return &Comparator{jvmPool: jvmPool, pythonPool: pythonPool}
}

// Compare 返回 (是否等价, 提示)。任一侧为空 ⇒ 不等价且无提示，
// 上游把空提交视为"未作答"而不是"答错"。
func (c *Comparator) Compare(ctx context.Context, userResponse, correctAnswer string, returnType model.ReturnType, language model.LanguageName) (bool, string) {
	if userResponse == "" || correctAnswer == "" {
		return false, ""
	}

	if language.IsJvm() {
		if util.IsBracketed(correctAnswer) {
			return c.equalsAsJvmList(ctx, userResponse, correctAnswer, language)
		}
		return equalsAsJvmScalar(userResponse, correctAnswer, returnType, language)
	}
	if util.IsBracketed(correctAnswer) {
		return c.equalsAsPythonList(ctx, userResponse, correctAnswer)
	}
	return equalsAsPythonScalar(userResponse, correctAnswer, returnType)
}

// CheckResponse 判定一次提交中第 index 个调用的回答。
// 回答在入口处去除首尾空白，后续比较、落库、历史累计都用修剪后的形式，
// 同一答案的空白变体不会重复进历史。
func (c *Comparator) CheckResponse(ctx context.Context, funcInfo *model.FunctionInfo, index int, userResponse string) model.ChallengeResult {
	correctAnswer := funcInfo.CorrectAnswers[index]
	userResponse = strings.TrimSpace(userResponse)
	answered := userResponse != ""

	var correct bool
	var hint string
	if answered {
		correct, hint = c.Compare(ctx, userResponse, correctAnswer, funcInfo.ReturnType, funcInfo.Names.Language)
	}

	return model.ChallengeResult{
		Invocation:   funcInfo.Invocations[index],
		UserResponse: userResponse,
		Answered:     answered,
		Correct:      correct,
		Hint:         hint,
	}
}

func (c *Comparator) evalInPool(ctx context.Context, pool *EvaluatorPool, expr string, deriveHint func() string) (bool, string) {
	result, err := pool.EvalExpr(ctx, expr)
	if err != nil {
		if errors.Is(err, util.ErrPoolTimeout) || errors.Is(err, util.ErrPoolClosed) {
			logger.Log.Warn("Evaluator pool unavailable", zap.String("expr", expr), zap.Error(err))
			return false, evalUnavailableHint
		}
		logger.Log.Debug("Evaluation error", zap.String("expr", expr), zap.Error(err))
		return false, deriveHint()
	}
	if result {
		return true, ""
	}
	return false, deriveHint()
}

func (c *Comparator) equalsAsJvmList(ctx context.Context, userResponse, correctAnswer string, language model.LanguageName) (bool, string) {
	trimmed := strings.TrimSpace(userResponse)
	deriveHint := func() string {
		switch {
		case !util.IsBracketed(trimmed):
			return bracketHint
		case containsElement(trimmed, "True", "False"):
			return language.DisplayName() + " booleans are either true or false"
		}
		return ""
	}
	lho := strings.TrimSpace(util.TrimBrackets(trimmed))
	rho := strings.TrimSpace(util.TrimBrackets(strings.TrimSpace(correctAnswer)))
	expr := "[" + lho + "] == [" + rho + "]"
	return c.evalInPool(ctx, c.jvmPool, expr, deriveHint)
}

func (c *Comparator) equalsAsPythonList(ctx context.Context, userResponse, correctAnswer string) (bool, string) {
	trimmed := strings.TrimSpace(userResponse)
	deriveHint := func() string {
		switch {
		case !util.IsBracketed(trimmed):
			return bracketHint
		case containsElement(trimmed, "true", "false"):
			return "Python booleans are either True or False"
		}
		return ""
	}
	expr := trimmed + " == " + strings.TrimSpace(correctAnswer)
	return c.evalInPool(ctx, c.pythonPool, expr, deriveHint)
}

// containsElement 判断括号列表里是否出现指定裸词元素
func containsElement(bracketed string, words ...string) bool {
	fields := strings.FieldsFunc(bracketed, func(r rune) bool {
		return r == '[' || r == ']' || r == ',' || r == ' '
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}

func equalsAsJvmScalar(userResponse, correctAnswer string, returnType model.ReturnType, language model.LanguageName) (bool, string) {
	deriveHint := func() string {
		switch {
		case returnType == model.BooleanType:
			switch {
			case util.IsPythonBoolean(userResponse):
				return language.DisplayName() + " booleans are either true or false"
			case !util.IsJavaBoolean(userResponse):
				return "Answer should be either true or false"
			}
			return ""
		case returnType == model.StringType && !util.IsDoubleQuoted(userResponse):
			return language.DisplayName() + " strings are double quoted"
		case returnType == model.IntType && !util.IsIntLiteral(userResponse):
			return "Answer should be an int value"
		case returnType == model.FloatType && !util.IsFloatLiteral(userResponse):
			return "Answer should be a float value"
		}
		return ""
	}

	result := func() bool {
		switch {
		case returnType == model.StringType:
			return userResponse == correctAnswer
		case strings.Contains(userResponse, ".") || strings.Contains(correctAnswer, "."):
			return floatEquals(userResponse, correctAnswer)
		case util.IsJavaBoolean(userResponse) && util.IsJavaBoolean(correctAnswer):
			return userResponse == correctAnswer
		default:
			return intEquals(userResponse, correctAnswer)
		}
	}()

	if result {
		return true, ""
	}
	return false, deriveHint()
}

func equalsAsPythonScalar(userResponse, correctAnswer string, returnType model.ReturnType) (bool, string) {
	deriveHint := func() string {
		switch {
		case returnType == model.BooleanType:
			switch {
			case util.IsJavaBoolean(userResponse):
				return "Python booleans are either True or False"
			case !util.IsPythonBoolean(userResponse):
				return "Answer should be either True or False"
			}
			return ""
		case returnType == model.StringType && !util.IsQuoted(userResponse):
			return "Python strings are either single or double quoted"
		case returnType == model.IntType && !util.IsIntLiteral(userResponse):
			return "Answer should be an int value"
		case returnType == model.FloatType && !util.IsFloatLiteral(userResponse):
			return "Answer should be a float value"
		}
		return ""
	}

	result := func() bool {
		switch {
		case util.IsDoubleQuoted(userResponse):
			return userResponse == correctAnswer
		case util.IsSingleQuoted(userResponse):
			return util.SingleToDoubleQuoted(userResponse) == correctAnswer
		case strings.Contains(userResponse, ".") || strings.Contains(correctAnswer, "."):
			return floatEquals(userResponse, correctAnswer)
		case util.IsPythonBoolean(userResponse) && util.IsPythonBoolean(correctAnswer):
			return userResponse == correctAnswer
		default:
			return intEquals(userResponse, correctAnswer)
		}
	}()

	if result {
		return true, ""
	}
	return false, deriveHint()
}

func floatEquals(a, b string) bool {
	x, err1 := strconv.ParseFloat(a, 64)
	y, err2 := strconv.ParseFloat(b, 64)
	return err1 == nil && err2 == nil && x == y
}

func intEquals(a, b string) bool {
	x, err1 := strconv.ParseInt(a, 10, 64)
	y, err2 := strconv.ParseInt(b, 10, 64)
	return err1 == nil && err2 == nil && x == y
}
