package models

import "time"

// ResponseBase carries the columns shared by every concrete response table.
type ResponseBase struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ResponseSetID uint      `gorm:"index;not null" json:"response_set_id"`
	QuestionID    uint      `gorm:"not null" json:"question_id"`
	SubmittedAt   time.Time `gorm:"autoCreateTime" json:"submitted_at"`
}

type TextResponse struct {
	ResponseBase
	Text string `gorm:"type:text" json:"text"`
}

func (TextResponse) TableName() string {
	return "text_responses"
}

type YesNoResponse struct {
	ResponseBase
	Value bool `gorm:"not null" json:"value"`
}

func (YesNoResponse) TableName() string {
	return "yes_no_responses"
}

// MultipleChoiceResponse stores one row per selected choice.
type MultipleChoiceResponse struct {
	ResponseBase
	ChoiceID uint   `gorm:"not null" json:"choice_id"`
	Choice   Choice `gorm:"foreignKey:ChoiceID" json:"-"`
}

func (MultipleChoiceResponse) TableName() string {
	return "multiple_choice_responses"
}

type RatingResponse struct {
	ResponseBase
	ChoiceID uint   `gorm:"not null" json:"choice_id"`
	Choice   Choice `gorm:"foreignKey:ChoiceID" json:"-"`
}

func (RatingResponse) TableName() string {
	return "rating_responses"
}

// ResponseRecord is the flattened view of one answer, used when listing a
// response set or exporting it.
type ResponseRecord struct {
	QuestionID  uint      `json:"question_id"`
	Type        string    `json:"type"`
	Value       string    `json:"value"`
	SubmittedAt time.Time `json:"submitted_at"`
}
