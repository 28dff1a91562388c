package model

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

type LanguageName string

const (
	Java   LanguageName = "java"
	Kotlin LanguageName = "kotlin"
	Python LanguageName = "python"
)

func (l LanguageName) IsJvm() bool {
	return l == Java || l == Kotlin
}

func (l LanguageName) Valid() bool {
	return l == Java || l == Kotlin || l == Python
}

// DisplayName 用于提示文案，如 "Java strings are double quoted"
func (l LanguageName) DisplayName() string {
	if len(l) == 0 {
		return ""
	}
	return strings.ToUpper(string(l[0])) + string(l[1:])
}

type ReturnType string

const (
	BooleanType ReturnType = "boolean"
	IntType     ReturnType = "int"
	FloatType   ReturnType = "float"
	StringType  ReturnType = "string"

	BooleanArrayType ReturnType = "boolean[]"
	IntArrayType     ReturnType = "int[]"
	FloatArrayType   ReturnType = "float[]"
	StringArrayType  ReturnType = "string[]"

	BooleanListType ReturnType = "List<Boolean>"
	IntListType     ReturnType = "List<Int>"
	FloatListType   ReturnType = "List<Float>"
	StringListType  ReturnType = "List<String>"
)

// ChallengeNames 挑战的标识三元组，指纹只由它派生，
// 与挑战内容无关，内容重载后指纹保持稳定
type ChallengeNames struct {
	Language  LanguageName `json:"language"`
	Group     string       `json:"group"`
	Challenge string       `json:"challenge"`
}

const keySep = "|"

func md5Of(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, keySep)))
	return hex.EncodeToString(sum[:])
}

// Md5 挑战级指纹，汇总表的关联键
func (n ChallengeNames) Md5() string {
	return md5Of(string(n.Language), n.Group, n.Challenge)
}

// InvocationMd5 调用级指纹，逐调用历史表的关联键
func (n ChallengeNames) InvocationMd5(invocation string) string {
	return md5Of(string(n.Language), n.Group, n.Challenge, invocation)
}

// FunctionInfo 内容加载子系统提供的挑战描述：
// 按顺序排列的调用及其参考答案，以及声明的返回值类别。
type FunctionInfo struct {
	Names          ChallengeNames `yaml:"-" json:"names"`
	Invocations    []string       `yaml:"invocations" json:"invocations"`
	CorrectAnswers []string       `yaml:"answers" json:"answers"`
	ReturnType     ReturnType     `yaml:"returnType" json:"returnType"`
}

func (f *FunctionInfo) Validate() error {
	if len(f.Invocations) != len(f.CorrectAnswers) {
		return fmt.Errorf("mismatch between %d answers and %d invocations in %s",
			len(f.CorrectAnswers), len(f.Invocations), f.Names.Challenge)
	}
	return nil
}

// AnswerStatus 单个调用的判定结果编码
type AnswerStatus int

const (
	NotAnswered AnswerStatus = 0
	Correct     AnswerStatus = 1
	Incorrect   AnswerStatus = 2
)

// ChallengeResult 一次提交中单个调用的判定
type ChallengeResult struct {
	Invocation   string `json:"invocation"`
	UserResponse string `json:"userResponse"`
	Answered     bool   `json:"answered"`
	Correct      bool   `json:"correct"`
	Hint         string `json:"hint"`
}

func (r ChallengeResult) Status() AnswerStatus {
	switch {
	case !r.Answered:
		return NotAnswered
	case r.Correct:
		return Correct
	default:
		return Incorrect
	}
}
