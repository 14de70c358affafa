package models

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"
)

// Validation failures surfaced to the submit endpoint.
var (
	ErrAnswerRequired = errors.New("answer is required")
	ErrBadChoice      = errors.New("choice does not belong to question")
)

func init() {
	RegisterType(TextQuestionType{})
	RegisterType(YesNoQuestionType{})
	RegisterType(MultipleChoiceQuestionType{})
	RegisterType(RatingQuestionType{})
}

// checkChoices verifies that every id belongs to the question.
func checkChoices(tx *gorm.DB, q *Question, ids []uint) error {
	var count int64
	if err := tx.Model(&Choice{}).
		Where("question_id = ? AND id IN ?", q.ID, ids).
		Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return fmt.Errorf("%w: question %d", ErrBadChoice, q.ID)
	}
	return nil
}

/* ========== Text ========== */

type TextQuestionType struct{}

func (TextQuestionType) Slug() string       { return "text" }
func (TextQuestionType) PrettyName() string { return "Text question" }
func (TextQuestionType) HasChoices() bool   { return false }

func (TextQuestionType) ValidateAnswer(tx *gorm.DB, q *Question, ans Answer) error {
	if q.Required && strings.TrimSpace(ans.Text) == "" {
		return fmt.Errorf("%w: question %d", ErrAnswerRequired, q.ID)
	}
	return nil
}

func (TextQuestionType) SaveResponse(tx *gorm.DB, set *ResponseSet, q *Question, ans Answer) error {
	if strings.TrimSpace(ans.Text) == "" {
		return nil
	}
	r := TextResponse{
		ResponseBase: ResponseBase{ResponseSetID: set.ID, QuestionID: q.ID},
		Text:         ans.Text,
	}
	return tx.Create(&r).Error
}

func (t TextQuestionType) Responses(db *gorm.DB, set *ResponseSet) ([]ResponseRecord, error) {
	var rows []TextResponse
	if err := db.Where("response_set_id = ?", set.ID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ResponseRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, ResponseRecord{
			QuestionID:  r.QuestionID,
			Type:        t.Slug(),
			Value:       r.Text,
			SubmittedAt: r.SubmittedAt,
		})
	}
	return out, nil
}

// Stats groups the free-text answers by frequency.
func (TextQuestionType) Stats(db *gorm.DB, q *Question) (interface{}, error) {
	var rows []struct {
		Answer string
		Count  int
	}
	if err := db.Raw(`
		SELECT text AS answer, COUNT(*) AS count
		FROM text_responses
		WHERE question_id = ?
		GROUP BY text
	`, q.ID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := []map[string]interface{}{}
	for _, r := range rows {
		stats = append(stats, map[string]interface{}{"answer": r.Answer, "count": r.Count})
	}
	return stats, nil
}

/* ========== Yes/No ========== */

type YesNoQuestionType struct{}

func (YesNoQuestionType) Slug() string       { return "yes_no" }
func (YesNoQuestionType) PrettyName() string { return "Yes/No question" }
func (YesNoQuestionType) HasChoices() bool   { return false }

func (YesNoQuestionType) ValidateAnswer(tx *gorm.DB, q *Question, ans Answer) error {
	v := strings.ToLower(strings.TrimSpace(ans.Text))
	if v == "" {
		if q.Required {
			return fmt.Errorf("%w: question %d", ErrAnswerRequired, q.ID)
		}
		return nil
	}
	if v != "yes" && v != "no" {
		return fmt.Errorf("question %d expects yes or no, got %q", q.ID, ans.Text)
	}
	return nil
}

func (YesNoQuestionType) SaveResponse(tx *gorm.DB, set *ResponseSet, q *Question, ans Answer) error {
	v := strings.ToLower(strings.TrimSpace(ans.Text))
	if v == "" {
		return nil
	}
	r := YesNoResponse{
		ResponseBase: ResponseBase{ResponseSetID: set.ID, QuestionID: q.ID},
		Value:        v == "yes",
	}
	return tx.Create(&r).Error
}

func (t YesNoQuestionType) Responses(db *gorm.DB, set *ResponseSet) ([]ResponseRecord, error) {
	var rows []YesNoResponse
	if err := db.Where("response_set_id = ?", set.ID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ResponseRecord, 0, len(rows))
	for _, r := range rows {
		value := "No"
		if r.Value {
			value = "Yes"
		}
		out = append(out, ResponseRecord{
			QuestionID:  r.QuestionID,
			Type:        t.Slug(),
			Value:       value,
			SubmittedAt: r.SubmittedAt,
		})
	}
	return out, nil
}

func (YesNoQuestionType) Stats(db *gorm.DB, q *Question) (interface{}, error) {
	var rows []struct {
		Value bool
		Count int
	}
	if err := db.Raw(`
		SELECT value, COUNT(*) AS count
		FROM yes_no_responses
		WHERE question_id = ?
		GROUP BY value
	`, q.ID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	yes, no := 0, 0
	for _, r := range rows {
		if r.Value {
			yes = r.Count
		} else {
			no = r.Count
		}
	}
	return map[string]interface{}{"yes": yes, "no": no}, nil
}

/* ========== Multiple choice ========== */

type MultipleChoiceQuestionType struct{}

func (MultipleChoiceQuestionType) Slug() string       { return "multiple_choice" }
func (MultipleChoiceQuestionType) PrettyName() string { return "Multiple choice question" }
func (MultipleChoiceQuestionType) HasChoices() bool   { return true }

func (MultipleChoiceQuestionType) ValidateAnswer(tx *gorm.DB, q *Question, ans Answer) error {
	if len(ans.ChoiceIDs) == 0 {
		if q.Required {
			return fmt.Errorf("%w: question %d", ErrAnswerRequired, q.ID)
		}
		return nil
	}
	return checkChoices(tx, q, ans.ChoiceIDs)
}

func (MultipleChoiceQuestionType) SaveResponse(tx *gorm.DB, set *ResponseSet, q *Question, ans Answer) error {
	for _, choiceID := range ans.ChoiceIDs {
		r := MultipleChoiceResponse{
			ResponseBase: ResponseBase{ResponseSetID: set.ID, QuestionID: q.ID},
			ChoiceID:     choiceID,
		}
		if err := tx.Create(&r).Error; err != nil {
			return err
		}
	}
	return nil
}

func (t MultipleChoiceQuestionType) Responses(db *gorm.DB, set *ResponseSet) ([]ResponseRecord, error) {
	var rows []MultipleChoiceResponse
	if err := db.Preload("Choice").
		Where("response_set_id = ?", set.ID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ResponseRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, ResponseRecord{
			QuestionID:  r.QuestionID,
			Type:        t.Slug(),
			Value:       r.Choice.Text,
			SubmittedAt: r.SubmittedAt,
		})
	}
	return out, nil
}

// Stats counts selections per choice, with each option's share of the total.
func (MultipleChoiceQuestionType) Stats(db *gorm.DB, q *Question) (interface{}, error) {
	var rows []struct {
		Option string
		Count  int
	}
	if err := db.Raw(`
		SELECT c.text AS option, COUNT(*) AS count
		FROM multiple_choice_responses r
		JOIN choices c ON c.id = r.choice_id
		WHERE r.question_id = ?
		GROUP BY c.text
	`, q.ID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	var total int
	for _, r := range rows {
		total += r.Count
	}

	stats := []map[string]interface{}{}
	for _, r := range rows {
		stats = append(stats, map[string]interface{}{
			"option":  r.Option,
			"count":   r.Count,
			"percent": float64(r.Count) * 100 / float64(total),
		})
	}
	return stats, nil
}

/* ========== Rating ========== */

// RatingQuestionType stores its scale as choices, so a rating answer is a
// single selected choice.
type RatingQuestionType struct{}

func (RatingQuestionType) Slug() string       { return "rating" }
func (RatingQuestionType) PrettyName() string { return "Rating question" }
func (RatingQuestionType) HasChoices() bool   { return true }

func (RatingQuestionType) ValidateAnswer(tx *gorm.DB, q *Question, ans Answer) error {
	if len(ans.ChoiceIDs) == 0 {
		if q.Required {
			return fmt.Errorf("%w: question %d", ErrAnswerRequired, q.ID)
		}
		return nil
	}
	if len(ans.ChoiceIDs) != 1 {
		return fmt.Errorf("question %d takes a single rating", q.ID)
	}
	return checkChoices(tx, q, ans.ChoiceIDs)
}

func (RatingQuestionType) SaveResponse(tx *gorm.DB, set *ResponseSet, q *Question, ans Answer) error {
	if len(ans.ChoiceIDs) == 0 {
		return nil
	}
	r := RatingResponse{
		ResponseBase: ResponseBase{ResponseSetID: set.ID, QuestionID: q.ID},
		ChoiceID:     ans.ChoiceIDs[0],
	}
	return tx.Create(&r).Error
}

// Stats builds the rating histogram with avg/min/max. The score is the
// choice's 1-based position on the scale.
func (RatingQuestionType) Stats(db *gorm.DB, q *Question) (interface{}, error) {
	var rows []struct {
		Rating int
		Count  int
	}
	if err := db.Raw(`
		SELECT c.position + 1 AS rating, COUNT(*) AS count
		FROM rating_responses r
		JOIN choices c ON c.id = r.choice_id
		WHERE r.question_id = ?
		GROUP BY c.position
		ORDER BY rating
	`, q.ID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	var sum, total int
	min, max := math.MaxInt, 0
	histogram := []map[string]interface{}{}
	for _, r := range rows {
		histogram = append(histogram, map[string]interface{}{"rating": r.Rating, "count": r.Count})
		sum += r.Rating * r.Count
		total += r.Count
		if r.Rating < min {
			min = r.Rating
		}
		if r.Rating > max {
			max = r.Rating
		}
	}

	if total == 0 {
		return map[string]interface{}{"avg": 0, "min": 0, "max": 0, "histogram": histogram}, nil
	}
	return map[string]interface{}{
		"avg":       float64(sum) / float64(total),
		"min":       min,
		"max":       max,
		"histogram": histogram,
	}, nil
}

func (t RatingQuestionType) Responses(db *gorm.DB, set *ResponseSet) ([]ResponseRecord, error) {
	var rows []RatingResponse
	if err := db.Preload("Choice").
		Where("response_set_id = ?", set.ID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ResponseRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, ResponseRecord{
			QuestionID:  r.QuestionID,
			Type:        t.Slug(),
			Value:       r.Choice.Text,
			SubmittedAt: r.SubmittedAt,
		})
	}
	return out, nil
}
