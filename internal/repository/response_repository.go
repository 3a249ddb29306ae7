package repository

import (
	"exam_platform_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResponseRepository struct {
	DB *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{DB: db}
}

// Upsert 以 (attempt_id, question_id) 为键写入答案。
// 重复保存同一题只会覆盖 answer，不会产生重复行。
func (r *ResponseRepository) Upsert(attemptID, questionID, answer string) error {
	resp := model.Response{
		UUIDBase:   model.UUIDBase{ID: model.GenerateUUID()},
		AttemptID:  attemptID,
		QuestionID: questionID,
		Answer:     answer,
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer", "updated_at"}),
	}).Create(&resp).Error
}

func (r *ResponseRepository) ListByAttempt(attemptID string) ([]model.Response, error) {
	var responses []model.Response
	err := r.DB.Where("attempt_id = ?", attemptID).Find(&responses).Error
	return responses, err
}
