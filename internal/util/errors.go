package util

import "errors"

var (
	ErrUserNotFound      = errors.New("用户不存在")
	ErrEmailRegistered   = errors.New("该邮箱已被注册")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrClassNotFound     = errors.New("class not found")
	ErrInvalidLanguage   = errors.New("invalid language name")

	ErrInvalidLikeDislike = errors.New("invalid like/dislike value")

	// 求值器池：容量耗尽等待超时。调用方把它翻译成
	// "evaluation unavailable" 提示，绝不向上层透传
	ErrPoolTimeout = errors.New("evaluator pool acquire timeout")
	ErrPoolClosed  = errors.New("evaluator pool closed")
)
