package model

import "time"

// swagger:model Exam
type Exam struct {
	UUIDBase
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Duration    int        `gorm:"default:0" json:"duration"` // 考试时长（分钟）
	TotalMarks  float64    `gorm:"default:0" json:"totalMarks"`
	MaxAttempts int        `gorm:"default:0" json:"maxAttempts"` // 0 表示不限次数
	IsPublished bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatorID   uint       `gorm:"index;type:bigint unsigned" json:"creatorId"`

	Sections []Section `gorm:"foreignKey:ExamID" json:"sections,omitempty"`
}

func (Exam) TableName() string {
	return "exams"
}

// swagger:model Section
type Section struct {
	UUIDBase
	ExamID   string `gorm:"index;type:varchar(36)" json:"examId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Position int    `gorm:"default:0" json:"position"`

	Questions []Question `gorm:"foreignKey:SectionID" json:"questions,omitempty"`
}

func (Section) TableName() string {
	return "exam_sections"
}
