package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// a single connection keeps the in-memory database alive
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&User{},
		&Form{},
		&Question{},
		&Choice{},
		&ResponseSet{},
		&TextResponse{},
		&YesNoResponse{},
		&MultipleChoiceResponse{},
		&RatingResponse{},
	))
	return db
}

// seedForm creates a form with one question of every built-in type. The
// multiple-choice and rating questions get three choices each.
func seedForm(t *testing.T, db *gorm.DB) (Form, map[string]Question) {
	t.Helper()

	form := Form{Name: "Exit interview", Status: "active"}
	require.NoError(t, db.Create(&form).Error)

	questions := map[string]Question{}
	for i, slug := range []string{"text", "yes_no", "multiple_choice", "rating"} {
		q := Question{
			FormID:   form.ID,
			Text:     "Question " + slug,
			Type:     slug,
			Position: DefaultPosition + i,
		}
		require.NoError(t, db.Create(&q).Error)

		qt, err := q.Resolve()
		require.NoError(t, err)
		if qt.HasChoices() {
			for p, text := range []string{"One", "Two", "Three"} {
				require.NoError(t, db.Create(&Choice{
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

func choicesOf(t *testing.T, db *gorm.DB, q Question) []Choice {
	t.Helper()
	var choices []Choice
	require.NoError(t, db.Where("question_id = ?", q.ID).Order("position ASC, id ASC").Find(&choices).Error)
	return choices
}
