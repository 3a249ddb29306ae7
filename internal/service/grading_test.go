package service

import (
	"math"
	"testing"

	"exam_platform_backend/internal/model"
)

// testExam 固定结构的两分节试卷:
//
//	第一节: q1 单选(2分,倒扣0.5) q2 多选(4分,倒扣1)
//	第二节: q3 数值(3分,倒扣1)  q4 单选(1分,不倒扣)
//
// 总分 10 分。
func testExam() *model.Exam {
	return &model.Exam{
		UUIDBase: model.UUIDBase{ID: "exam-1"},
		Title:    "样卷",
		Duration: 30,
		Sections: []model.Section{
			{
				UUIDBase: model.UUIDBase{ID: "sec-1"},
				Title:    "选择题",
				Questions: []model.Question{
					{
						UUIDBase:      model.UUIDBase{ID: "q1"},
						QuestionType:  model.SingleChoice,
						Marks:         2,
						NegativeMarks: 0.5,
						Options: []model.Option{
							{UUIDBase: model.UUIDBase{ID: "q1a"}, IsCorrect: true},
							{UUIDBase: model.UUIDBase{ID: "q1b"}},
							{UUIDBase: model.UUIDBase{ID: "q1c"}},
						},
					},
					{
						UUIDBase:      model.UUIDBase{ID: "q2"},
						QuestionType:  model.MultiChoice,
						Marks:         4,
						NegativeMarks: 1,
						Options: []model.Option{
							{UUIDBase: model.UUIDBase{ID: "q2a"}, IsCorrect: true},
							{UUIDBase: model.UUIDBase{ID: "q2b"}, IsCorrect: true},
							{UUIDBase: model.UUIDBase{ID: "q2c"}},
						},
					},
				},
			},
			{
				UUIDBase: model.UUIDBase{ID: "sec-2"},
				Title:    "填空题",
				Questions: []model.Question{
					{
						UUIDBase:      model.UUIDBase{ID: "q3"},
						QuestionType:  model.Numeric,
						Marks:         3,
						NegativeMarks: 1,
						CorrectAnswer: "12",
					},
					{
						UUIDBase:     model.UUIDBase{ID: "q4"},
						QuestionType: model.SingleChoice,
						Marks:        1,
						Options: []model.Option{
							{UUIDBase: model.UUIDBase{ID: "q4a"}},
							{UUIDBase: model.UUIDBase{ID: "q4b"}, IsCorrect: true},
						},
					},
				},
			},
		},
	}
}

func testView(t *testing.T) *ExamView {
	t.Helper()
	view, err := BuildExamView(testExam())
	if err != nil {
		t.Fatalf("BuildExamView: %v", err)
	}
	return view
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGradeExamScoring(t *testing.T) {
	tests := []struct {
		name           string
		answers        map[string]AnswerValue
		wantObtained   float64
		wantCorrect    int
		wantWrong      int
		wantUnanswered int
	}{
		{
			name: "全部答对",
			answers: map[string]AnswerValue{
				"q1": {OptionID: "q1a"},
				"q2": {OptionIDs: []string{"q2a", "q2b"}},
				"q3": {Text: "12"},
				"q4": {OptionID: "q4b"},
			},
			wantObtained: 10,
			wantCorrect:  4,
		},
		{
			name:           "未作答不倒扣",
			answers:        map[string]AnswerValue{},
			wantObtained:   0,
			wantUnanswered: 4,
		},
		{
			name: "答错倒扣",
			answers: map[string]AnswerValue{
				"q1": {OptionID: "q1b"},
				"q3": {Text: "13"},
			},
			wantObtained:   -1.5,
			wantWrong:      2,
			wantUnanswered: 2,
		},
		{
			name: "多选顺序无关且重复只计一次",
			answers: map[string]AnswerValue{
				"q2": {OptionIDs: []string{"q2b", "q2a", "q2b"}},
			},
			wantObtained:   4,
			wantCorrect:    1,
			wantUnanswered: 3,
		},
		{
			name: "多选部分正确按答错计",
			answers: map[string]AnswerValue{
				"q2": {OptionIDs: []string{"q2a"}},
			},
			wantObtained:   -1,
			wantWrong:      1,
			wantUnanswered: 3,
		},
		{
			name: "多选包含错误选项按答错计",
			answers: map[string]AnswerValue{
				"q2": {OptionIDs: []string{"q2a", "q2b", "q2c"}},
			},
			wantObtained:   -1,
			wantWrong:      1,
			wantUnanswered: 3,
		},
		{
			name: "数值按数值比较而非字符串",
			answers: map[string]AnswerValue{
				"q3": {Text: "12.0"},
			},
			wantObtained:   3,
			wantCorrect:    1,
			wantUnanswered: 3,
		},
		{
			name: "数值无法解析按答错",
			answers: map[string]AnswerValue{
				"q3": {Text: "twelve"},
			},
			wantObtained:   -1,
			wantWrong:      1,
			wantUnanswered: 3,
		},
		{
			name: "无倒扣题目答错得零分",
			answers: map[string]AnswerValue{
				"q4": {OptionID: "q4a"},
			},
			wantObtained:   0,
			wantWrong:      1,
			wantUnanswered: 3,
		},
	}

	view := testView(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, sections := GradeExam(view, tt.answers)

			if !almostEqual(result.ObtainedMarks, tt.wantObtained) {
				t.Errorf("obtained = %v, want %v", result.ObtainedMarks, tt.wantObtained)
			}
			if !almostEqual(result.TotalMarks, 10) {
				t.Errorf("total = %v, want 10", result.TotalMarks)
			}

			var correct, wrong, unanswered int
			var sectionSum float64
			for _, sr := range sections {
				correct += sr.Correct
				wrong += sr.Wrong
				unanswered += sr.Unanswered
				sectionSum += sr.ObtainedMarks
			}
			if correct != tt.wantCorrect || wrong != tt.wantWrong || unanswered != tt.wantUnanswered {
				t.Errorf("counts = %d/%d/%d, want %d/%d/%d",
					correct, wrong, unanswered, tt.wantCorrect, tt.wantWrong, tt.wantUnanswered)
			}

			// 分节得分之和恒等于总得分
			if !almostEqual(sectionSum, result.ObtainedMarks) {
				t.Errorf("section sum = %v, obtained = %v", sectionSum, result.ObtainedMarks)
			}

			wantPct := tt.wantObtained / 10 * 100
			if !almostEqual(result.Percentage, wantPct) {
				t.Errorf("percentage = %v, want %v", result.Percentage, wantPct)
			}
		})
	}
}

func TestGradeExamNegativeTotal(t *testing.T) {
	view := testView(t)
	// 全部答错,倒扣 0.5+1+1+0 = 2.5
	result, _ := GradeExam(view, map[string]AnswerValue{
		"q1": {OptionID: "q1c"},
		"q2": {OptionIDs: []string{"q2c"}},
		"q3": {Text: "-1"},
		"q4": {OptionID: "q4a"},
	})
	if !almostEqual(result.ObtainedMarks, -2.5) {
		t.Errorf("obtained = %v, want -2.5", result.ObtainedMarks)
	}
	if result.Percentage >= 0 && !almostEqual(result.Percentage, -25) {
		t.Errorf("percentage = %v, want -25", result.Percentage)
	}
}

func TestGradeExamIsPure(t *testing.T) {
	view := testView(t)
	answers := map[string]AnswerValue{"q1": {OptionID: "q1a"}}

	first, _ := GradeExam(view, answers)
	second, _ := GradeExam(view, answers)
	if first.ObtainedMarks != second.ObtainedMarks || first.Percentage != second.Percentage {
		t.Errorf("repeat grading differs: %+v vs %+v", first, second)
	}
}
