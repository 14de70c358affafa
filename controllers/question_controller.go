package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vhoang/dynamicforms-server/config"
	"github.com/vhoang/dynamicforms-server/middleware"
	"github.com/vhoang/dynamicforms-server/models"
)

type addQuestionReq struct {
	Type     string          `json:"type" binding:"required"`
	Text     string          `json:"text" binding:"required"`
	Position *int            `json:"position"`
	Required bool            `json:"required"`
	Props    json.RawMessage `json:"props"`
}

func AddQuestion(c *gin.Context) {
	f := c.MustGet(middleware.CtxForm).(models.Form)

	var req addQuestionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if !models.TypeEnabled(req.Type) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Unknown question type", "type": req.Type})
		return
	}

	if len(req.Props) > 0 && !json.Valid(req.Props) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "props is not valid JSON"})
		return
	}

	position := 0
	if req.Position != nil {
		position = *req.Position
	} else {
		// append after the current tail, starting at the default position
		type nextRes struct{ Next int }
		var r nextRes
		_ = config.DB.Model(&models.Question{}).
			Where("form_id = ?", f.ID).
			Select("COALESCE(MAX(position), ?) + 1 AS next", models.DefaultPosition-1).
			Scan(&r).Error
		position = r.Next
	}

	q := models.Question{
		FormID:   f.ID,
		Text:     req.Text,
		Type:     req.Type,
		Position: position,
		Required: req.Required,
	}
	if len(req.Props) > 0 {
		q.Props = datatypes.JSON(req.Props)
	}

	if err := config.DB.Create(&q).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot add question"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question_id": q.ID, "form_id": f.ID, "position": q.Position})
}

type updateQuestionReq struct {
	Text     *string          `json:"text"`
	Required *bool            `json:"required"`
	Props    *json.RawMessage `json:"props"`
}

func UpdateQuestion(c *gin.Context) {
	q := c.MustGet(middleware.CtxQuestion).(models.Question)

	var req updateQuestionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	if req.Props != nil && len(*req.Props) > 0 && !json.Valid(*req.Props) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "props is not valid JSON"})
		return
	}

	updates := map[string]interface{}{}
	if req.Text != nil {
		updates["text"] = *req.Text
	}
	if req.Required != nil {
		updates["required"] = *req.Required
	}
	if req.Props != nil {
		updates["props"] = datatypes.JSON(*req.Props)
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Nothing to update"})
		return
	}

	if err := config.DB.Model(&q).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// DeleteQuestion removes the question and closes the position gap behind it.
func DeleteQuestion(c *gin.Context) {
	q := c.MustGet(middleware.CtxQuestion).(models.Question)

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", q.ID).Delete(&models.Choice{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&q).Error; err != nil {
			return err
		}
		return tx.Model(&models.Question{}).
			Where("form_id = ? AND position > ?", q.FormID, q.Position).
			Update("position", gorm.Expr("position - 1")).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Delete failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

/* ========== Choices ========== */

// questionTakesChoices resolves the question through the registry and checks
// the concrete type owns answer options.
func questionTakesChoices(c *gin.Context, q *models.Question) bool {
	qt, err := q.Resolve()
	if err != nil {
		if errors.Is(err, models.ErrUnknownQuestionType) {
			c.JSON(http.StatusConflict, gin.H{"message": "Question has an unknown type", "type": q.Type})
			return false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot resolve question type"})
		return false
	}
	if !qt.HasChoices() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "This question type has no choices", "type": q.Type})
		return false
	}
	return true
}

type addChoiceReq struct {
	Text     string `json:"text" binding:"required"`
	Position *int   `json:"position"`
}

func AddChoice(c *gin.Context) {
	q := c.MustGet(middleware.CtxQuestion).(models.Question)
	if !questionTakesChoices(c, &q) {
		return
	}

	var req addChoiceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	position := 0
	if req.Position != nil {
		position = *req.Position
	} else {
		type nextRes struct{ Next int }
		var r nextRes
		_ = config.DB.Model(&models.Choice{}).
			Where("question_id = ?", q.ID).
			Select("COALESCE(MAX(position), -1) + 1 AS next").
			Scan(&r).Error
		position = r.Next
	}

	ch := models.Choice{QuestionID: q.ID, Text: req.Text, Position: position}
	if err := config.DB.Create(&ch).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot add choice"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"choice_id": ch.ID, "question_id": q.ID})
}

type updateChoiceReq struct {
	Text     *string `json:"text"`
	Position *int    `json:"position"`
}

func UpdateChoice(c *gin.Context) {
	q := c.MustGet(middleware.CtxQuestion).(models.Question)

	var ch models.Choice
	if err := config.DB.
		Where("id = ? AND question_id = ?", c.Param("choice_id"), q.ID).
		First(&ch).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Choice not found"})
		return
	}

	var req updateChoiceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Text != nil {
		updates["text"] = *req.Text
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Nothing to update"})
		return
	}

	if err := config.DB.Model(&ch).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func DeleteChoice(c *gin.Context) {
	q := c.MustGet(middleware.CtxQuestion).(models.Question)

	var ch models.Choice
	if err := config.DB.
		Where("id = ? AND question_id = ?", c.Param("choice_id"), q.ID).
		First(&ch).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Choice not found"})
		return
	}

	if err := config.DB.Delete(&ch).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
