package service

import (
	"strconv"
	"strings"

	"exam_platform_backend/internal/model"
)

type questionOutcome int

const (
	outcomeUnanswered questionOutcome = iota
	outcomeCorrect
	outcomeWrong
)

// GradeExam 纯函数判分：给定试卷快照和内存答案表，
// 产出总成绩与各分节成绩。不触发任何 I/O，不读存储。
//
// 计分规则：
//   - 答对 +marks，答错（已作答）-negative_marks，未作答 0 分
//   - 试卷内每道题都计入统计，没有答案记录的题按未作答处理
//   - 总得分不做 0 下限截断，倒扣可使其为负
//   - 百分比 = 得分/总分*100，总分为 0 时记 0
//
// 各分节得分之和恒等于试卷总得分（同一过程按分节归并）。
func GradeExam(view *ExamView, answers map[string]AnswerValue) (*model.Result, []model.SectionResult) {
	result := &model.Result{}
	sectionResults := make([]model.SectionResult, 0, len(view.Sections))

	for _, sec := range view.Sections {
		sr := model.SectionResult{
			SectionID:  sec.ID,
			TotalMarks: sec.TotalMarks,
		}
		for _, q := range sec.Questions {
			ans, ok := answers[q.ID]
			contribution, outcome := gradeQuestion(q, ans, ok)
			sr.ObtainedMarks += contribution
			switch outcome {
			case outcomeCorrect:
				sr.Correct++
			case outcomeWrong:
				sr.Wrong++
			default:
				sr.Unanswered++
			}
		}
		result.TotalMarks += sr.TotalMarks
		result.ObtainedMarks += sr.ObtainedMarks
		sectionResults = append(sectionResults, sr)
	}

	if result.TotalMarks > 0 {
		result.Percentage = result.ObtainedMarks / result.TotalMarks * 100
	}

	return result, sectionResults
}

func gradeQuestion(q QuestionView, ans AnswerValue, answered bool) (float64, questionOutcome) {
	if !answered || ans.IsEmpty() {
		return 0, outcomeUnanswered
	}

	var correct bool
	switch q.Kind {
	case model.SingleChoice:
		correct = ans.OptionID == q.correctOption
	case model.MultiChoice:
		correct = sameOptionSet(ans.OptionIDs, q.correctSet)
	case model.Numeric:
		// 统一按数值比较，"12" 与 "12.0" 等价；无法解析按答错处理
		n, err := strconv.ParseFloat(strings.TrimSpace(ans.Text), 64)
		correct = err == nil && n == q.correctNumber
	}

	if correct {
		return q.Marks, outcomeCorrect
	}
	return -q.NegativeMarks, outcomeWrong
}

// sameOptionSet 集合相等比较，与选择顺序无关，重复选项只计一次
func sameOptionSet(selected []string, correct map[string]bool) bool {
	seen := make(map[string]bool, len(selected))
	for _, id := range selected {
		if !correct[id] {
			return false
		}
		seen[id] = true
	}
	return len(seen) == len(correct)
}
