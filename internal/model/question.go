package model

type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	MultiChoice  QuestionType = "multi_choice"
	Numeric      QuestionType = "numeric"
)

// swagger:model Question
type Question struct {
	UUIDBase
	SectionID     string       `gorm:"index;type:varchar(36)" json:"sectionId"`
	QuestionType  QuestionType `gorm:"size:50;not null" json:"questionType"`
	Content       string       `gorm:"type:text;not null" json:"content"` // 题干
	Marks         float64      `gorm:"default:0" json:"marks"`
	NegativeMarks float64      `gorm:"default:0" json:"negativeMarks"` // 答错倒扣分
	CorrectAnswer string       `gorm:"type:text" json:"correctAnswer"` // 仅数值题使用
	Position      int          `gorm:"default:0" json:"position"`

	Options []Option `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "exam_questions"
}

// swagger:model Option
type Option struct {
	UUIDBase
	QuestionID string `gorm:"index;type:varchar(36)" json:"questionId"`
	Content    string `gorm:"type:text;not null" json:"content"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
	Position   int    `gorm:"default:0" json:"position"`
}

func (Option) TableName() string {
	return "exam_question_options"
}
