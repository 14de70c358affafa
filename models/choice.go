package models

// Choice is one answer option owned by a multiple-choice or rating question.
type Choice struct {
	ID         uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID uint     `json:"question_id"`
	Question   Question `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"-"`
	Text       string   `gorm:"type:text;not null" json:"text"`
	Position   int      `gorm:"default:0" json:"position"`
}

func (Choice) TableName() string {
	return "choices"
}
