package service

import (
	"strings"
	"testing"

	"exam_platform_backend/internal/model"
)

func TestBuildExamViewTotals(t *testing.T) {
	view := testView(t)

	if view.TotalMarks != 10 {
		t.Errorf("TotalMarks = %v, want 10", view.TotalMarks)
	}
	if view.QuestionCount() != 4 {
		t.Errorf("QuestionCount = %d, want 4", view.QuestionCount())
	}
	if view.Sections[0].TotalMarks != 6 || view.Sections[1].TotalMarks != 4 {
		t.Errorf("section totals = %v/%v, want 6/4",
			view.Sections[0].TotalMarks, view.Sections[1].TotalMarks)
	}
	if _, ok := view.Question("q3"); !ok {
		t.Error("Question(q3) not found")
	}
	if _, ok := view.Question("nope"); ok {
		t.Error("Question(nope) unexpectedly found")
	}
}

func TestBuildExamViewValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.Exam)
		wantErr string
	}{
		{
			name: "分值必须为正",
			mutate: func(e *model.Exam) {
				e.Sections[0].Questions[0].Marks = 0
			},
			wantErr: "marks must be positive",
		},
		{
			name: "倒扣分不能为负",
			mutate: func(e *model.Exam) {
				e.Sections[0].Questions[0].NegativeMarks = -1
			},
			wantErr: "negative marks",
		},
		{
			name: "单选必须恰好一个正确选项",
			mutate: func(e *model.Exam) {
				e.Sections[0].Questions[0].Options[1].IsCorrect = true
			},
			wantErr: "exactly one correct option",
		},
		{
			name: "单选必须有选项",
			mutate: func(e *model.Exam) {
				e.Sections[0].Questions[0].Options = nil
			},
			wantErr: "no options",
		},
		{
			name: "多选至少一个正确选项",
			mutate: func(e *model.Exam) {
				for i := range e.Sections[0].Questions[1].Options {
					e.Sections[0].Questions[1].Options[i].IsCorrect = false
				}
			},
			wantErr: "at least one correct option",
		},
		{
			name: "数值题答案必须可解析",
			mutate: func(e *model.Exam) {
				e.Sections[1].Questions[0].CorrectAnswer = "abc"
			},
			wantErr: "unparseable",
		},
		{
			name: "数值题不允许携带选项",
			mutate: func(e *model.Exam) {
				e.Sections[1].Questions[0].Options = []model.Option{
					{UUIDBase: model.UUIDBase{ID: "x"}},
				}
			},
			wantErr: "must not have options",
		},
		{
			name: "未知题型",
			mutate: func(e *model.Exam) {
				e.Sections[0].Questions[0].QuestionType = "essay"
			},
			wantErr: "unknown question type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exam := testExam()
			tt.mutate(exam)
			_, err := BuildExamView(exam)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeExamViewHidesAnswers(t *testing.T) {
	detail := SanitizeExamView(testView(t))

	if len(detail.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(detail.Sections))
	}
	// 数值题的标准答案与选项正确性不得出现在学生视图结构中:
	// StudentQuestion/StudentOption 不携带这些字段,这里确认选项本身保留
	q1 := detail.Sections[0].Questions[0]
	if len(q1.Options) != 3 {
		t.Errorf("q1 options = %d, want 3", len(q1.Options))
	}
	q3 := detail.Sections[1].Questions[0]
	if len(q3.Options) != 0 {
		t.Errorf("numeric question carries %d options", len(q3.Options))
	}
}
