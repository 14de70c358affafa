package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vhoang/dynamicforms-server/config"
	"github.com/vhoang/dynamicforms-server/models"
	"github.com/vhoang/dynamicforms-server/routes"
	"github.com/vhoang/dynamicforms-server/utils"
)

// setupServer swaps config.DB for an in-memory database and wires the real
// router against it.
func setupServer(t *testing.T) *gin.Engine {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))
	config.DB = db
	models.LoadEnabledTypes()

	r := gin.New()
	routes.SetupRoutes(r)
	return r
}

func seedUser(t *testing.T, name, email string, admin bool) models.User {
	t.Helper()
	hash, err := utils.HashPassword("secret123")
	require.NoError(t, err)
	u := models.User{Name: name, Email: email, Password: hash, IsAdmin: admin}
	require.NoError(t, config.DB.Create(&u).Error)
	return u
}

func authToken(t *testing.T, u models.User) string {
	t.Helper()
	role := "user"
	if u.IsAdmin {
		role = "admin"
	}
	token, err := utils.GenerateToken(fmt.Sprintf("%d", u.ID), role)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// seedFormWithQuestions inserts a form owned by u with one question per
// built-in type, rating and multiple choice carrying three choices each.
func seedFormWithQuestions(t *testing.T, u models.User) (models.Form, map[string]models.Question) {
	t.Helper()

	form := models.Form{Name: "Survey", Status: "active", OwnerID: &u.ID}
	require.NoError(t, config.DB.Create(&form).Error)

	questions := map[string]models.Question{}
	for i, slug := range []string{"text", "yes_no", "multiple_choice", "rating"} {
		q := models.Question{
			FormID:   form.ID,
			Text:     "Question " + slug,
			Type:     slug,
			Position: models.DefaultPosition + i,
		}
		require.NoError(t, config.DB.Create(&q).Error)
		qt, err := q.Resolve()
		require.NoError(t, err)
		if qt.HasChoices() {
			for p, text := range []string{"Low", "Mid", "High"} {
				require.NoError(t, config.DB.Create(&models.Choice{
					QuestionID: q.ID,
					Text:       text,
					Position:   p,
				}).Error)
			}
		}
		questions[slug] = q
	}
	return form, questions
}

func questionChoices(t *testing.T, q models.Question) []models.Choice {
	t.Helper()
	var choices []models.Choice
	require.NoError(t, config.DB.
		Where("question_id = ?", q.ID).
		Order("position ASC, id ASC").
		Find(&choices).Error)
	return choices
}
