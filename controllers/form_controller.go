package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vhoang/dynamicforms-server/config"
	"github.com/vhoang/dynamicforms-server/middleware"
	"github.com/vhoang/dynamicforms-server/models"
)

type createFormReq struct {
	Name        string          `json:"name" binding:"required,min=1"`
	Description string          `json:"description"`
	Settings    json.RawMessage `json:"settings"`
}

func CreateForm(c *gin.Context) {
	u := c.MustGet(middleware.CtxUser).(models.User)

	var req createFormReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	if len(req.Settings) > 0 && !json.Valid(req.Settings) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "settings is not valid JSON"})
		return
	}

	form := models.Form{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     &u.ID,
		Status:      "active",
	}
	if len(req.Settings) > 0 {
		form.Settings = datatypes.JSON(req.Settings)
	}

	if err := config.DB.Create(&form).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot create form"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":          form.ID,
		"name":        form.Name,
		"description": form.Description,
		"owner_id":    form.OwnerID,
		"created_at":  form.CreatedAt,
	})
}

// GetFormDetail returns a form with its questions ordered by (position, id)
// and each question's choices ordered the same way.
func GetFormDetail(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
		return
	}

	var form models.Form
	err = config.DB.
		Where("id = ? AND status <> 'deleted'", id).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Questions.Choices", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		First(&form).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Form not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot read form"})
		return
	}

	var settings interface{}
	if len(form.Settings) > 0 {
		_ = json.Unmarshal(form.Settings, &settings)
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          form.ID,
		"name":        form.Name,
		"description": form.Description,
		"status":      form.Status,
		"settings":    settings,
		"questions":   form.Questions,
	})
}

// ShareForm hands out the form's public link token, minting one on first use.
// Anonymous respondents read the form through GetPublicForm with it.
func ShareForm(c *gin.Context) {
	f := c.MustGet(middleware.CtxForm).(models.Form)

	if f.ShareToken == nil {
		token := uuid.NewString()
		if err := config.DB.Model(&models.Form{}).
			Where("id = ?", f.ID).
			Update("share_token", token).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot share form"})
			return
		}
		f.ShareToken = &token
	}

	c.JSON(http.StatusOK, gin.H{
		"form_id":     f.ID,
		"share_token": *f.ShareToken,
		"share_url":   "/api/forms/public/" + *f.ShareToken,
	})
}

// GetPublicForm is the anonymous read path: it resolves a share token to an
// active form and returns its questions, so respondents can fill the form in
// without an account.
func GetPublicForm(c *gin.Context) {
	token := c.Param("share_token")

	var form models.Form
	err := config.DB.
		Where("share_token = ? AND status = 'active'", token).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Questions.Choices", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		First(&form).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Form not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot read form"})
		return
	}

	var settings interface{}
	if len(form.Settings) > 0 {
		_ = json.Unmarshal(form.Settings, &settings)
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          form.ID,
		"name":        form.Name,
		"description": form.Description,
		"settings":    settings,
		"questions":   form.Questions,
	})
}

type updateFormReq struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Settings    *json.RawMessage `json:"settings"`
}

func UpdateForm(c *gin.Context) {
	f := c.MustGet(middleware.CtxForm).(models.Form)

	var req updateFormReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	if req.Settings != nil && len(*req.Settings) > 0 && !json.Valid(*req.Settings) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "settings is not valid JSON"})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Settings != nil {
		updates["settings"] = datatypes.JSON(*req.Settings)
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Nothing to update"})
		return
	}

	if err := config.DB.Model(&models.Form{}).
		Where("id = ?", f.ID).
		Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// DeleteForm is a soft delete via status.
func DeleteForm(c *gin.Context) {
	f := c.MustGet(middleware.CtxForm).(models.Form)
	if err := config.DB.Model(&models.Form{}).
		Where("id = ?", f.ID).
		Update("status", "deleted").Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func ArchiveForm(c *gin.Context) {
	f := c.MustGet(middleware.CtxForm).(models.Form)
	if err := config.DB.Model(&models.Form{}).
		Where("id = ?", f.ID).
		Update("status", "archived").Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Archive failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "archived"})
}

func RestoreForm(c *gin.Context) {
	f := c.MustGet(middleware.CtxForm).(models.Form)
	if err := config.DB.Model(&models.Form{}).
		Where("id = ?", f.ID).
		Update("status", "active").Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Restore failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "restored"})
}

func GetMyForms(c *gin.Context) {
	u := c.MustGet(middleware.CtxUser).(models.User)

	var forms []models.Form
	if err := config.DB.
		Where("owner_id = ? AND status <> 'deleted'", u.ID).
		Order("created_at DESC").
		Find(&forms).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot list forms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"forms": forms})
}

type reorderReq struct {
	Order []uint `json:"order" binding:"required,min=1,dive,required"`
}

// ReorderQuestions rewrites positions from the given id list.
func ReorderQuestions(c *gin.Context) {
	f := c.MustGet(middleware.CtxForm).(models.Form)

	var req reorderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	// every id must belong to this form
	var count int64
	if err := config.DB.Model(&models.Question{}).
		Where("form_id = ? AND id IN ?", f.ID, req.Order).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot validate questions"})
		return
	}
	if count != int64(len(req.Order)) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Order contains questions outside this form"})
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		for idx, qID := range req.Order {
			if err := tx.Model(&models.Question{}).
				Where("id = ? AND form_id = ?", qID, f.ID).
				Update("position", idx).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Reorder failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// CloneForm deep-copies a form with its questions and choices.
func CloneForm(c *gin.Context) {
	f := c.MustGet(middleware.CtxForm).(models.Form)
	u := c.MustGet(middleware.CtxUser).(models.User)

	var questions []models.Question
	if err := config.DB.
		Preload("Choices", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Where("form_id = ?", f.ID).
		Order("position ASC, id ASC").
		Find(&questions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot read questions"})
		return
	}

	clone := models.Form{
		Name:        f.Name + " (copy)",
		Description: f.Description,
		OwnerID:     &u.ID,
		Status:      "active",
		Settings:    f.Settings,
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&clone).Error; err != nil {
			return err
		}
		for _, q := range questions {
			nq := models.Question{
				FormID:   clone.ID,
				Text:     q.Text,
				Type:     q.Type,
				Position: q.Position,
				Required: q.Required,
				Props:    q.Props,
			}
			if err := tx.Create(&nq).Error; err != nil {
				return err
			}
			for _, ch := range q.Choices {
				nc := models.Choice{
					QuestionID: nq.ID,
					Text:       ch.Text,
					Position:   ch.Position,
				}
				if err := tx.Create(&nc).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Clone failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": clone.ID, "name": clone.Name})
}
