package service

import (
	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// DBSessionStore 是 sessionStore 的数据库实现
type DBSessionStore struct {
	db        *gorm.DB
	responses *repository.ResponseRepository
	attempts  *repository.AttemptRepository
	results   *repository.ResultRepository
}

func NewDBSessionStore(db *gorm.DB, responses *repository.ResponseRepository, attempts *repository.AttemptRepository, results *repository.ResultRepository) *DBSessionStore {
	return &DBSessionStore{
		db:        db,
		responses: responses,
		attempts:  attempts,
		results:   results,
	}
}

func (s *DBSessionStore) UpsertResponse(attemptID, questionID, answer string) error {
	return s.responses.Upsert(attemptID, questionID, answer)
}

func (s *DBSessionStore) UpdateAttemptTimeSpent(attemptID string, seconds int) error {
	return s.attempts.UpdateTimeSpent(attemptID, seconds)
}

// SubmitAttempt 状态翻转与成绩写入在同一事务内完成。
// UPDATE 带 status 守卫：没有行被更新说明别的提交已经赢了，
// 返回 ErrAttemptSubmitted，不会写出第二份成绩。
func (s *DBSessionStore) SubmitAttempt(attemptID string, timeSpent int, result *model.Result, sectionResults []model.SectionResult) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&model.Attempt{}).
			Where("id = ? AND status = ?", attemptID, model.AttemptInProgress).
			Updates(map[string]interface{}{
				"status":       model.AttemptSubmitted,
				"active":       nil,
				"time_spent":   timeSpent,
				"submitted_at": &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrAttemptSubmitted
		}
		return s.results.CreateWithSections(tx, result, sectionResults)
	})
}
