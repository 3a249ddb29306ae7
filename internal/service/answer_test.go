package service

import (
	"testing"

	"exam_platform_backend/internal/model"
)

func TestAnswerValueIsEmpty(t *testing.T) {
	if !(AnswerValue{}).IsEmpty() {
		t.Error("zero value should be empty")
	}
	if !(AnswerValue{Text: "   "}).IsEmpty() {
		t.Error("whitespace text should be empty")
	}
	if !(AnswerValue{OptionIDs: []string{}}).IsEmpty() {
		t.Error("empty option list should be empty")
	}
	if (AnswerValue{OptionID: "a"}).IsEmpty() {
		t.Error("selected option should not be empty")
	}
}

func TestEncodeAnswerShapeMismatch(t *testing.T) {
	if _, err := EncodeAnswer(model.SingleChoice, AnswerValue{Text: "12"}); err == nil {
		t.Error("single choice with text should fail")
	}
	if _, err := EncodeAnswer(model.Numeric, AnswerValue{OptionID: "a"}); err == nil {
		t.Error("numeric with option should fail")
	}

	// 空答案编码为空串,表示清除
	raw, err := EncodeAnswer(model.MultiChoice, AnswerValue{})
	if err != nil || raw != "" {
		t.Errorf("empty answer: raw=%q err=%v", raw, err)
	}
}

func TestDecodeAnswerRoundTrip(t *testing.T) {
	v := AnswerValue{OptionIDs: []string{"a", "b"}}
	raw, err := EncodeAnswer(model.MultiChoice, v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := DecodeAnswer(model.MultiChoice, raw)
	if len(got.OptionIDs) != 2 || got.OptionIDs[0] != "a" || got.OptionIDs[1] != "b" {
		t.Errorf("decoded = %+v", got)
	}
}

func TestDecodeAnswerLegacyBareOptionID(t *testing.T) {
	// 非 JSON 的裸选项ID按单元素集合处理
	got := DecodeAnswer(model.MultiChoice, "opt-7")
	if len(got.OptionIDs) != 1 || got.OptionIDs[0] != "opt-7" {
		t.Errorf("decoded = %+v", got)
	}
}
