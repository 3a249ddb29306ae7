package repository

import (
	"exam_platform_backend/internal/model"
	"strings"
	"time"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// Create 新建进行中的作答记录。active=1 参与
// (exam_id, user_id, active) 唯一索引，双开标签页并发创建时
// 数据库层只会放行一条。
func (r *AttemptRepository) Create(attempt *model.Attempt) error {
	active := true
	attempt.Active = &active
	attempt.Status = model.AttemptInProgress
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = time.Now()
	}
	return r.DB.Create(attempt).Error
}

// IsDuplicateActive 判断错误是否为活跃作答唯一索引冲突
func IsDuplicateActive(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "Duplicate entry") || strings.Contains(err.Error(), "idx_exam_user_active")
}

func (r *AttemptRepository) FindByID(id string) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.DB.First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByExamAndUser 按创建时间倒序列出某考生在某试卷下的全部作答
func (r *AttemptRepository) ListByExamAndUser(examID string, userID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.Where("exam_id = ? AND user_id = ?", examID, userID).
		Order("created_at desc").Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) FindInProgress(examID string, userID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.Where("exam_id = ? AND user_id = ? AND status = ?", examID, userID, model.AttemptInProgress).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) UpdateTimeSpent(attemptID string, seconds int) error {
	return r.DB.Model(&model.Attempt{}).Where("id = ?", attemptID).
		Update("time_spent", seconds).Error
}

func (r *AttemptRepository) ListByExam(examID string, page, limit int) ([]model.Attempt, int64, error) {
	query := r.DB.Model(&model.Attempt{}).Where("exam_id = ?", examID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var attempts []model.Attempt
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&attempts).Error
	return attempts, total, err
}
