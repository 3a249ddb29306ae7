package util

import "errors"

var (
	ErrUserNotFound      = errors.New("用户不存在")
	ErrEmailRegistered   = errors.New("该邮箱已被注册")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrExamNotFound      = errors.New("exam not found")
	ErrExamNotPublished  = errors.New("exam not published or not accessible")
	ErrAlreadySubmitted  = errors.New("exam already submitted, request a retake to start again")
	ErrAttemptsExhausted = errors.New("maximum attempts reached")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrAttemptSubmitted  = errors.New("attempt already submitted")
	ErrNotYourAttempt    = errors.New("attempt belongs to another user")
	ErrResultNotFound    = errors.New("result not available yet")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrInvalidAnswer     = errors.New("invalid answer for question type")
	ErrSubmissionFailed  = errors.New("submission failed, please retry")
)
