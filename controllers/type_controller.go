package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vhoang/dynamicforms-server/models"
)

// ListQuestionTypes returns the enabled question types, for clients building
// the "add question" choices.
func ListQuestionTypes(c *gin.Context) {
	types := []gin.H{}
	for _, qt := range models.EnabledTypes() {
		types = append(types, gin.H{
			"slug":        qt.Slug(),
			"pretty_name": qt.PrettyName(),
			"has_choices": qt.HasChoices(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"question_types": types})
}
