package models

import (
	"time"

	"gorm.io/datatypes"
)

type Form struct {
	ID          uint           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"column:name;size:255;not null" json:"name"`
	Description string         `gorm:"column:description;type:text" json:"description"`
	Status      string         `gorm:"column:status;size:20;default:'active'" json:"status"` // active | archived | deleted
	OwnerID     *uint          `gorm:"column:owner_id" json:"owner_id"`
	ShareToken  *string        `gorm:"column:share_token;size:36;uniqueIndex" json:"-"`
	Settings    datatypes.JSON `gorm:"column:settings" json:"-"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Owner *User `gorm:"foreignKey:OwnerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	Questions    []Question    `gorm:"foreignKey:FormID" json:"-"`
	ResponseSets []ResponseSet `gorm:"foreignKey:FormID" json:"-"`
}

func (Form) TableName() string {
	return "forms"
}
