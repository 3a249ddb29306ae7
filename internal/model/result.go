package model

// Result 一次提交的总成绩。ObtainedMarks 为各题带符号贡献之和，
// 倒扣分可能使其为负，这里不做 0 下限截断。
// swagger:model Result
type Result struct {
	UUIDBase
	AttemptID     string  `gorm:"type:varchar(36);uniqueIndex" json:"attemptId"`
	TotalMarks    float64 `gorm:"default:0" json:"totalMarks"`
	ObtainedMarks float64 `gorm:"default:0" json:"obtainedMarks"`
	Percentage    float64 `gorm:"default:0" json:"percentage"`

	SectionResults []SectionResult `gorm:"foreignKey:ResultID" json:"sectionResults,omitempty"`
}

func (Result) TableName() string {
	return "exam_results"
}

// swagger:model SectionResult
type SectionResult struct {
	UUIDBase
	ResultID      string  `gorm:"index;type:varchar(36)" json:"resultId"`
	SectionID     string  `gorm:"index;type:varchar(36)" json:"sectionId"`
	TotalMarks    float64 `gorm:"default:0" json:"totalMarks"`
	ObtainedMarks float64 `gorm:"default:0" json:"obtainedMarks"`
	Correct       int     `gorm:"default:0" json:"correct"`
	Wrong         int     `gorm:"default:0" json:"wrong"`
	Unanswered    int     `gorm:"default:0" json:"unanswered"`
}

func (SectionResult) TableName() string {
	return "exam_section_results"
}
