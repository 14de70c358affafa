package models

import (
	"time"

	"gorm.io/gorm"
)

// ResponseSet groups the answers one respondent submits for one form.
// Interviewer is set when an admin records the answers on the respondent's
// behalf.
type ResponseSet struct {
	ID            uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FormID        uint      `gorm:"column:form_id;not null" json:"form_id"`
	UserID        *uint     `gorm:"column:user_id" json:"user_id"`
	InterviewerID *uint     `gorm:"column:interviewer_id" json:"interviewer_id,omitempty"`
	Added         time.Time `gorm:"column:added;autoCreateTime" json:"added"`

	Form        Form  `gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE" json:"-"`
	User        *User `gorm:"foreignKey:UserID" json:"-"`
	Interviewer *User `gorm:"foreignKey:InterviewerID" json:"-"`
}

func (ResponseSet) TableName() string {
	return "response_sets"
}

// Responses gathers this set's answers from every registered question type's
// concrete table, in registration order.
func (s *ResponseSet) Responses(db *gorm.DB) ([]ResponseRecord, error) {
	var out []ResponseRecord
	for _, qt := range RegisteredTypes() {
		records, err := qt.Responses(db, s)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}
