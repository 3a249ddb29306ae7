package service

import (
	"encoding/json"
	"strings"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/util"
)

// AnswerValue 内存中的类型化答案：单选为选项ID，多选为选项ID集合，
// 数值题为原始字符串。序列化只发生在存取边界（autosave 与成绩落库）。
type AnswerValue struct {
	OptionID  string   `json:"optionId,omitempty"`
	OptionIDs []string `json:"optionIds,omitempty"`
	Text      string   `json:"text,omitempty"`
}

// IsEmpty 为空即视为未作答：清除、空串、空列表均算
func (v AnswerValue) IsEmpty() bool {
	return v.OptionID == "" && len(v.OptionIDs) == 0 && strings.TrimSpace(v.Text) == ""
}

// EncodeAnswer 将类型化答案编码为存储用的规范字符串。
// 单选存选项ID，多选存JSON数组，数值题存原始文本，空答案存空串。
func EncodeAnswer(kind model.QuestionType, v AnswerValue) (string, error) {
	if v.IsEmpty() {
		return "", nil
	}
	switch kind {
	case model.SingleChoice:
		if v.OptionID == "" {
			return "", util.ErrInvalidAnswer
		}
		return v.OptionID, nil
	case model.MultiChoice:
		if len(v.OptionIDs) == 0 {
			return "", util.ErrInvalidAnswer
		}
		raw, err := json.Marshal(v.OptionIDs)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	case model.Numeric:
		if strings.TrimSpace(v.Text) == "" {
			return "", util.ErrInvalidAnswer
		}
		return v.Text, nil
	}
	return "", util.ErrInvalidAnswer
}

// DecodeAnswer 从存储字符串还原类型化答案，用于恢复进行中的作答
func DecodeAnswer(kind model.QuestionType, raw string) AnswerValue {
	if strings.TrimSpace(raw) == "" {
		return AnswerValue{}
	}
	switch kind {
	case model.SingleChoice:
		return AnswerValue{OptionID: raw}
	case model.MultiChoice:
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			// 历史数据可能存了裸选项ID
			return AnswerValue{OptionIDs: []string{raw}}
		}
		return AnswerValue{OptionIDs: ids}
	case model.Numeric:
		return AnswerValue{Text: raw}
	}
	return AnswerValue{}
}
