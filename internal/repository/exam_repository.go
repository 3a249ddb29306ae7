package repository

import (
	"exam_platform_backend/internal/model"

	"gorm.io/gorm"
)

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

func (r *ExamRepository) Create(exam *model.Exam) error {
	return r.DB.Create(exam).Error
}

// FindByID 加载试卷及其全部分节/题目/选项，按 position 排序
func (r *ExamRepository) FindByID(id string) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("exam_sections.position asc")
		}).
		Preload("Sections.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("exam_questions.position asc")
		}).
		Preload("Sections.Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("exam_question_options.position asc")
		}).
		First(&exam, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *ExamRepository) FindHeaderByID(id string) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.First(&exam, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *ExamRepository) Update(exam *model.Exam) error {
	return r.DB.Save(exam).Error
}

func (r *ExamRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var sectionIDs []string
		if err := tx.Model(&model.Section{}).Where("exam_id = ?", id).Pluck("id", &sectionIDs).Error; err != nil {
			return err
		}
		if len(sectionIDs) > 0 {
			var questionIDs []string
			if err := tx.Model(&model.Question{}).Where("section_id IN ?", sectionIDs).Pluck("id", &questionIDs).Error; err != nil {
				return err
			}
			if len(questionIDs) > 0 {
				if err := tx.Where("question_id IN ?", questionIDs).Delete(&model.Option{}).Error; err != nil {
					return err
				}
				if err := tx.Where("section_id IN ?", sectionIDs).Delete(&model.Question{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("exam_id = ?", id).Delete(&model.Section{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Exam{}, "id = ?", id).Error
	})
}

type ExamListRow struct {
	model.Exam
	QuestionCount int `json:"questionCount"`
	AttemptCount  int `json:"attemptCount"`
}

func (r *ExamRepository) List(page, limit int, publishedOnly bool) ([]ExamListRow, int64, error) {
	query := r.DB.Model(&model.Exam{}).Where("deleted_at IS NULL")
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	dbQuery := r.DB.Table("exams e").
		Select("e.*, " +
			"(SELECT COUNT(*) FROM exam_questions q JOIN exam_sections s ON q.section_id = s.id WHERE s.exam_id = e.id AND q.deleted_at IS NULL) as question_count, " +
			"(SELECT COUNT(*) FROM exam_attempts a WHERE a.exam_id = e.id AND a.deleted_at IS NULL) as attempt_count").
		Where("e.deleted_at IS NULL")
	if publishedOnly {
		dbQuery = dbQuery.Where("e.is_published = ?", true)
	}

	if limit > 0 {
		offset := (page - 1) * limit
		dbQuery = dbQuery.Offset(offset).Limit(limit)
	}

	var exams []ExamListRow
	err := dbQuery.Order("e.created_at desc").Scan(&exams).Error
	return exams, total, err
}

// ReplaceStructure 在一个事务内重建试卷的分节/题目/选项
func (r *ExamRepository) ReplaceStructure(exam *model.Exam, sections []model.Section) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(exam).Error; err != nil {
			return err
		}

		var sectionIDs []string
		if err := tx.Model(&model.Section{}).Where("exam_id = ?", exam.ID).Pluck("id", &sectionIDs).Error; err != nil {
			return err
		}
		if len(sectionIDs) > 0 {
			var questionIDs []string
			if err := tx.Model(&model.Question{}).Where("section_id IN ?", sectionIDs).Pluck("id", &questionIDs).Error; err != nil {
				return err
			}
			if len(questionIDs) > 0 {
				if err := tx.Unscoped().Where("question_id IN ?", questionIDs).Delete(&model.Option{}).Error; err != nil {
					return err
				}
				if err := tx.Unscoped().Where("section_id IN ?", sectionIDs).Delete(&model.Question{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Unscoped().Where("exam_id = ?", exam.ID).Delete(&model.Section{}).Error; err != nil {
				return err
			}
		}

		for i := range sections {
			sections[i].ExamID = exam.ID
			if err := tx.Create(&sections[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
