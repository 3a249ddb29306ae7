package model

import "time"

const (
	AttemptInProgress = "in_progress"
	AttemptSubmitted  = "submitted"
)

// Attempt 一名学生对一场考试的单次作答记录。
// active 列在 in_progress 期间为 1、提交后置 NULL，配合
// (exam_id, user_id, active) 唯一索引在存储层兜底
// “同一考生同一考试至多一条进行中记录”。
// swagger:model Attempt
type Attempt struct {
	UUIDBase
	ExamID      string     `gorm:"type:varchar(36);uniqueIndex:idx_exam_user_active;index" json:"examId"`
	UserID      uint       `gorm:"type:bigint unsigned;uniqueIndex:idx_exam_user_active;index" json:"userId"`
	Status      string     `gorm:"size:20;default:'in_progress'" json:"status"` // in_progress, submitted
	Active      *bool      `gorm:"uniqueIndex:idx_exam_user_active" json:"-"`
	TimeSpent   int        `gorm:"default:0" json:"timeSpent"` // 已用时间（秒）
	StartedAt   time.Time  `json:"startedAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

func (Attempt) TableName() string {
	return "exam_attempts"
}

// swagger:model Response
type Response struct {
	UUIDBase
	AttemptID  string `gorm:"type:varchar(36);uniqueIndex:idx_attempt_question" json:"attemptId"`
	QuestionID string `gorm:"type:varchar(36);uniqueIndex:idx_attempt_question" json:"questionId"`
	Answer     string `gorm:"type:text" json:"answer"` // 选项ID / JSON 数组 / 数值字符串
}

func (Response) TableName() string {
	return "exam_responses"
}
