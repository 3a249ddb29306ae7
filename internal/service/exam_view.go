package service

import (
	"fmt"
	"strconv"
	"strings"

	"exam_platform_backend/internal/model"
)

// ExamView 是一场考试在会话期间使用的只读快照。
// 选项正确性等判分依据在构建时解析为类型化字段，
// 作答过程中不再回表。
type ExamView struct {
	ID          string
	Title       string
	Description string
	Duration    int // 分钟
	MaxAttempts int
	TotalMarks  float64
	Sections    []SectionView
}

type SectionView struct {
	ID         string
	Title      string
	TotalMarks float64
	Questions  []QuestionView
}

// QuestionView 根据题型只携带所需的判分字段：
// 单选记正确选项ID，多选记正确选项ID集合，数值题记标准答案数值。
type QuestionView struct {
	ID            string
	Kind          model.QuestionType
	Content       string
	Marks         float64
	NegativeMarks float64
	Options       []OptionView

	correctOption string
	correctSet    map[string]bool
	correctNumber float64
}

type OptionView struct {
	ID      string
	Content string
}

// Question 按ID查找题目，找不到时第二个返回值为 false
func (v *ExamView) Question(id string) (QuestionView, bool) {
	for i := range v.Sections {
		for j := range v.Sections[i].Questions {
			if v.Sections[i].Questions[j].ID == id {
				return v.Sections[i].Questions[j], true
			}
		}
	}
	return QuestionView{}, false
}

func (v *ExamView) QuestionCount() int {
	n := 0
	for i := range v.Sections {
		n += len(v.Sections[i].Questions)
	}
	return n
}

// BuildExamView 将存储模型转换为类型化快照，同时校验题目定义：
//   - 单选题必须恰好有一个正确选项
//   - 多选题至少有一个正确选项
//   - 数值题必须有可解析为数字的标准答案，且不携带选项
//
// 分节与试卷总分由题目分值累加得出。
func BuildExamView(exam *model.Exam) (*ExamView, error) {
	view := &ExamView{
		ID:          exam.ID,
		Title:       exam.Title,
		Description: exam.Description,
		Duration:    exam.Duration,
		MaxAttempts: exam.MaxAttempts,
	}

	for _, sec := range exam.Sections {
		sv := SectionView{
			ID:    sec.ID,
			Title: sec.Title,
		}
		for _, q := range sec.Questions {
			qv, err := buildQuestionView(&q)
			if err != nil {
				return nil, err
			}
			sv.TotalMarks += qv.Marks
			sv.Questions = append(sv.Questions, qv)
		}
		view.TotalMarks += sv.TotalMarks
		view.Sections = append(view.Sections, sv)
	}

	return view, nil
}

func buildQuestionView(q *model.Question) (QuestionView, error) {
	if q.Marks <= 0 {
		return QuestionView{}, fmt.Errorf("question %s: marks must be positive", q.ID)
	}
	if q.NegativeMarks < 0 {
		return QuestionView{}, fmt.Errorf("question %s: negative marks must not be negative", q.ID)
	}

	qv := QuestionView{
		ID:            q.ID,
		Kind:          q.QuestionType,
		Content:       q.Content,
		Marks:         q.Marks,
		NegativeMarks: q.NegativeMarks,
	}

	switch q.QuestionType {
	case model.SingleChoice:
		correct := 0
		for _, opt := range q.Options {
			qv.Options = append(qv.Options, OptionView{ID: opt.ID, Content: opt.Content})
			if opt.IsCorrect {
				correct++
				qv.correctOption = opt.ID
			}
		}
		if len(q.Options) == 0 {
			return QuestionView{}, fmt.Errorf("question %s: single choice question has no options", q.ID)
		}
		if correct != 1 {
			return QuestionView{}, fmt.Errorf("question %s: single choice question must have exactly one correct option, got %d", q.ID, correct)
		}
	case model.MultiChoice:
		qv.correctSet = make(map[string]bool)
		for _, opt := range q.Options {
			qv.Options = append(qv.Options, OptionView{ID: opt.ID, Content: opt.Content})
			if opt.IsCorrect {
				qv.correctSet[opt.ID] = true
			}
		}
		if len(q.Options) == 0 {
			return QuestionView{}, fmt.Errorf("question %s: multi choice question has no options", q.ID)
		}
		if len(qv.correctSet) == 0 {
			return QuestionView{}, fmt.Errorf("question %s: multi choice question must have at least one correct option", q.ID)
		}
	case model.Numeric:
		if len(q.Options) > 0 {
			return QuestionView{}, fmt.Errorf("question %s: numeric question must not have options", q.ID)
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(q.CorrectAnswer), 64)
		if err != nil {
			return QuestionView{}, fmt.Errorf("question %s: numeric question has unparseable correct answer %q", q.ID, q.CorrectAnswer)
		}
		qv.correctNumber = n
	default:
		return QuestionView{}, fmt.Errorf("question %s: unknown question type %q", q.ID, q.QuestionType)
	}

	return qv, nil
}
