package models

import "gorm.io/datatypes"

// DefaultPosition is the position assigned to questions created without an
// explicit one. Questions sort by (position, id) everywhere they are listed.
const DefaultPosition = 1000

// Question is the generic parent row for every question type. The Type column
// is the stored type tag: Resolve turns it back into concrete behavior.
// Position carries no database default: zero is a legitimate position after a
// reorder, and a column default would swallow it on insert.
type Question struct {
	ID       uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	FormID   uint           `json:"form_id"`
	Form     Form           `gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE" json:"-"`
	Text     string         `gorm:"type:text;not null" json:"text"`
	Type     string         `gorm:"size:50;not null" json:"type"`
	Position int            `gorm:"not null" json:"position"`
	Required bool           `gorm:"default:false" json:"required"`
	Props    datatypes.JSON `gorm:"column:props" json:"props,omitempty"`

	Choices []Choice `gorm:"foreignKey:QuestionID" json:"choices,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// Resolve returns the concrete question type for the stored tag.
func (q *Question) Resolve() (QuestionType, error) {
	return ResolveType(q.Type)
}
