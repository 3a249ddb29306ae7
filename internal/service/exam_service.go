package service

import (
	"errors"
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/util"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type ExamService struct {
	Repo        *repository.ExamRepository
	AttemptRepo *repository.AttemptRepository
	ResultRepo  *repository.ResultRepository
	Rdb         *redis.Client
}

func NewExamService(repo *repository.ExamRepository, attemptRepo *repository.AttemptRepository, resultRepo *repository.ResultRepository, rdb *redis.Client) *ExamService {
	return &ExamService{
		Repo:        repo,
		AttemptRepo: attemptRepo,
		ResultRepo:  resultRepo,
		Rdb:         rdb,
	}
}

type OptionReq struct {
	Content   string `json:"content" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type QuestionReq struct {
	QuestionType  model.QuestionType `json:"questionType" binding:"required"`
	Content       string             `json:"content" binding:"required"`
	Marks         float64            `json:"marks"`
	NegativeMarks float64            `json:"negativeMarks"`
	CorrectAnswer string             `json:"correctAnswer"`
	Options       []OptionReq        `json:"options"`
}

type SectionReq struct {
	Title     string        `json:"title" binding:"required"`
	Questions []QuestionReq `json:"questions"`
}

type ExamReq struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Duration    *int          `json:"duration"`
	MaxAttempts *int          `json:"maxAttempts"`
	Sections    *[]SectionReq `json:"sections"`
}

// assembleSections 将请求体转换为带位置信息的存储结构
func assembleSections(reqs []SectionReq) []model.Section {
	sections := make([]model.Section, 0, len(reqs))
	for si, sReq := range reqs {
		sec := model.Section{
			UUIDBase: model.UUIDBase{ID: model.GenerateUUID()},
			Title:    sReq.Title,
			Position: si,
		}
		for qi, qReq := range sReq.Questions {
			q := model.Question{
				UUIDBase:      model.UUIDBase{ID: model.GenerateUUID()},
				SectionID:     sec.ID,
				QuestionType:  qReq.QuestionType,
				Content:       qReq.Content,
				Marks:         qReq.Marks,
				NegativeMarks: qReq.NegativeMarks,
				CorrectAnswer: qReq.CorrectAnswer,
				Position:      qi,
			}
			for oi, oReq := range qReq.Options {
				q.Options = append(q.Options, model.Option{
					UUIDBase:   model.UUIDBase{ID: model.GenerateUUID()},
					QuestionID: q.ID,
					Content:    oReq.Content,
					IsCorrect:  oReq.IsCorrect,
					Position:   oi,
				})
			}
			sec.Questions = append(sec.Questions, q)
		}
		sections = append(sections, sec)
	}
	return sections
}

func (s *ExamService) CreateExam(creatorID uint, req ExamReq) (*model.Exam, error) {
	if req.Title == nil || *req.Title == "" {
		return nil, errors.New("title is required")
	}

	exam := &model.Exam{
		UUIDBase:  model.UUIDBase{ID: model.GenerateUUID()},
		Title:     *req.Title,
		CreatorID: creatorID,
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.Duration != nil {
		exam.Duration = *req.Duration
	}
	if req.MaxAttempts != nil {
		exam.MaxAttempts = *req.MaxAttempts
	}

	var sections []model.Section
	if req.Sections != nil {
		sections = assembleSections(*req.Sections)
	}

	// 题目定义校验借用会话快照的构建器：
	// 单选恰好一个正确项、多选至少一个、数值题答案可解析
	exam.Sections = sections
	view, err := BuildExamView(exam)
	if err != nil {
		return nil, err
	}
	exam.TotalMarks = view.TotalMarks
	exam.Sections = nil

	if err := s.Repo.Create(exam); err != nil {
		return nil, err
	}
	if err := s.Repo.ReplaceStructure(exam, sections); err != nil {
		return nil, err
	}

	exam.Sections = sections
	return exam, nil
}

func (s *ExamService) UpdateExam(examID string, req ExamReq) (*model.Exam, error) {
	exam, err := s.Repo.FindHeaderByID(examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrExamNotFound
		}
		return nil, err
	}

	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.Duration != nil {
		exam.Duration = *req.Duration
	}
	if req.MaxAttempts != nil {
		exam.MaxAttempts = *req.MaxAttempts
	}

	if req.Sections != nil {
		sections := assembleSections(*req.Sections)
		exam.Sections = sections
		view, err := BuildExamView(exam)
		if err != nil {
			return nil, err
		}
		exam.TotalMarks = view.TotalMarks
		exam.Sections = nil

		if err := s.Repo.ReplaceStructure(exam, sections); err != nil {
			return nil, err
		}
		exam.Sections = sections
	} else {
		if err := s.Repo.Update(exam); err != nil {
			return nil, err
		}
	}

	InvalidateExamSnapshot(s.Rdb, examID)
	return exam, nil
}

func (s *ExamService) PublishExam(examID string, publish bool) (*model.Exam, error) {
	exam, err := s.Repo.FindByID(examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrExamNotFound
		}
		return nil, err
	}

	if publish {
		// 发布前整卷校验，损坏的题目定义不允许上架
		if _, err := BuildExamView(exam); err != nil {
			return nil, err
		}
		now := time.Now()
		exam.IsPublished = true
		exam.PublishedAt = &now
	} else {
		exam.IsPublished = false
	}

	exam.Sections = nil
	if err := s.Repo.Update(exam); err != nil {
		return nil, err
	}

	InvalidateExamSnapshot(s.Rdb, examID)
	return exam, nil
}

func (s *ExamService) DeleteExam(examID string) error {
	if err := s.Repo.Delete(examID); err != nil {
		return err
	}
	InvalidateExamSnapshot(s.Rdb, examID)
	return nil
}

func (s *ExamService) GetExam(examID string) (*model.Exam, error) {
	exam, err := s.Repo.FindByID(examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrExamNotFound
		}
		return nil, err
	}
	return exam, nil
}

func (s *ExamService) ListExams(page, limit int, publishedOnly bool) ([]repository.ExamListRow, int64, error) {
	return s.Repo.List(page, limit, publishedOnly)
}

func (s *ExamService) ListAttempts(examID string, page, limit int) ([]model.Attempt, int64, error) {
	return s.AttemptRepo.ListByExam(examID, page, limit)
}

func (s *ExamService) ListResults(examID string) ([]model.Result, error) {
	return s.ResultRepo.ListByExam(examID)
}

// StudentQuestion 学生视角的题目：不含正确选项标记和标准答案
type StudentQuestion struct {
	ID            string             `json:"id"`
	QuestionType  model.QuestionType `json:"questionType"`
	Content       string             `json:"content"`
	Marks         float64            `json:"marks"`
	NegativeMarks float64            `json:"negativeMarks"`
	Options       []StudentOption    `json:"options,omitempty"`
}

type StudentOption struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type StudentSection struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Questions []StudentQuestion `json:"questions"`
}

type StudentExamDetail struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Duration    int              `json:"duration"`
	TotalMarks  float64          `json:"totalMarks"`
	MaxAttempts int              `json:"maxAttempts"`
	Sections    []StudentSection `json:"sections"`
}

// SanitizeExamView 从会话快照构造学生可见的试卷内容
func SanitizeExamView(view *ExamView) *StudentExamDetail {
	detail := &StudentExamDetail{
		ID:          view.ID,
		Title:       view.Title,
		Description: view.Description,
		Duration:    view.Duration,
		TotalMarks:  view.TotalMarks,
		MaxAttempts: view.MaxAttempts,
	}
	for _, sec := range view.Sections {
		ss := StudentSection{ID: sec.ID, Title: sec.Title}
		for _, q := range sec.Questions {
			sq := StudentQuestion{
				ID:            q.ID,
				QuestionType:  q.Kind,
				Content:       q.Content,
				Marks:         q.Marks,
				NegativeMarks: q.NegativeMarks,
			}
			for _, opt := range q.Options {
				sq.Options = append(sq.Options, StudentOption{ID: opt.ID, Content: opt.Content})
			}
			ss.Questions = append(ss.Questions, sq)
		}
		detail.Sections = append(detail.Sections, ss)
	}
	return detail
}
