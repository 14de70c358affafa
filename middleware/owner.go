package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vhoang/dynamicforms-server/config"
	"github.com/vhoang/dynamicforms-server/models"
)

func isOwner(u models.User, f *models.Form) bool {
	return f.OwnerID != nil && *f.OwnerID == u.ID
}

// CheckFormOwner loads the form into the context and verifies ownership.
// Deleted forms are treated as missing.
func CheckFormOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := c.MustGet(CtxUser).(models.User)

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
			return
		}

		var f models.Form
		if err := config.DB.
			Where("id = ? AND status <> 'deleted'", id).
			First(&f).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Form not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Cannot read form"})
			return
		}

		if !isOwner(u, &f) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "You do not own this form"})
			return
		}

		c.Set(CtxForm, f)
		c.Next()
	}
}

// CheckQuestionOwner resolves a question id back to its form and verifies the
// caller owns that form. Both rows are placed in the context.
func CheckQuestionOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := c.MustGet(CtxUser).(models.User)

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid question id"})
			return
		}

		var q models.Question
		if err := config.DB.First(&q, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Question not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Cannot read question"})
			return
		}

		var f models.Form
		if err := config.DB.
			Where("id = ? AND status <> 'deleted'", q.FormID).
			First(&f).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Form not found"})
			return
		}

		if !isOwner(u, &f) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "You do not own this form"})
			return
		}

		c.Set(CtxForm, f)
		c.Set(CtxQuestion, q)
		c.Next()
	}
}
