package repository

import (
	"exam_platform_backend/internal/model"

	"gorm.io/gorm"
)

type ResultRepository struct {
	DB *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: db}
}

// CreateWithSections 在给定事务内写入总成绩和各分节成绩
func (r *ResultRepository) CreateWithSections(tx *gorm.DB, result *model.Result, sections []model.SectionResult) error {
	if err := tx.Create(result).Error; err != nil {
		return err
	}
	for i := range sections {
		sections[i].ResultID = result.ID
	}
	if len(sections) > 0 {
		if err := tx.Create(&sections).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *ResultRepository) FindByAttempt(attemptID string) (*model.Result, error) {
	var result model.Result
	err := r.DB.Preload("SectionResults").
		Where("attempt_id = ?", attemptID).First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultRepository) ListByExam(examID string) ([]model.Result, error) {
	var results []model.Result
	err := r.DB.Preload("SectionResults").
		Joins("JOIN exam_attempts a ON a.id = exam_results.attempt_id").
		Where("a.exam_id = ?", examID).
		Order("exam_results.created_at desc").
		Find(&results).Error
	return results, err
}
