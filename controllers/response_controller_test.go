package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vhoang/dynamicforms-server/config"
	"github.com/vhoang/dynamicforms-server/models"
)

func TestSubmitResponses(t *testing.T) {
	r := setupServer(t)
	owner := seedUser(t, "Owner", "owner@example.com", false)
	form, questions := seedFormWithQuestions(t, owner)

	mcChoices := questionChoices(t, questions["multiple_choice"])
	ratingChoices := questionChoices(t, questions["rating"])

	body := map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": questions["text"].ID, "text": "it was fine"},
			{"question_id": questions["yes_no"].ID, "text": "yes"},
			{"question_id": questions["multiple_choice"].ID, "choice_ids": []uint{mcChoices[0].ID, mcChoices[2].ID}},
			{"question_id": questions["rating"].ID, "choice_ids": []uint{ratingChoices[1].ID}},
		},
	}

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/forms/%d/responses", form.ID), "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeBody(t, w)
	setID := uint(resp["response_set_id"].(float64))
	require.NotZero(t, setID)

	var count int64
	config.DB.Model(&models.TextResponse{}).Where("response_set_id = ?", setID).Count(&count)
	require.EqualValues(t, 1, count)
	config.DB.Model(&models.YesNoResponse{}).Where("response_set_id = ?", setID).Count(&count)
	require.EqualValues(t, 1, count)
	config.DB.Model(&models.MultipleChoiceResponse{}).Where("response_set_id = ?", setID).Count(&count)
	require.EqualValues(t, 2, count)
	config.DB.Model(&models.RatingResponse{}).Where("response_set_id = ?", setID).Count(&count)
	require.EqualValues(t, 1, count)

	// anonymous submission has no user
	var set models.ResponseSet
	require.NoError(t, config.DB.First(&set, setID).Error)
	require.Nil(t, set.UserID)
	require.Nil(t, set.InterviewerID)

	// detail endpoint gathers all four concrete tables
	token := authToken(t, owner)
	w = doJSON(t, r, http.MethodGet,
		fmt.Sprintf("/api/forms/%d/responses/%d", form.ID, setID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	detail := decodeBody(t, w)
	require.Len(t, detail["responses"], 5)
}

func TestSubmitMissingRequiredQuestion(t *testing.T) {
	r := setupServer(t)
	owner := seedUser(t, "Owner", "owner@example.com", false)
	form, questions := seedFormWithQuestions(t, owner)

	q := questions["text"]
	require.NoError(t, config.DB.Model(&q).Update("required", true).Error)

	body := map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": questions["yes_no"].ID, "text": "no"},
		},
	}
	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/forms/%d/responses", form.ID), "", body)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "required")
}

func TestSubmitRejectsForeignQuestion(t *testing.T) {
	r := setupServer(t)
	owner := seedUser(t, "Owner", "owner@example.com", false)
	form, _ := seedFormWithQuestions(t, owner)
	_, otherQuestions := seedFormWithQuestions(t, owner)

	body := map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": otherQuestions["text"].ID, "text": "sneaky"},
		},
	}
	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/forms/%d/responses", form.ID), "", body)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "does not belong")
}

func TestSubmitRejectsBadYesNoValue(t *testing.T) {
	r := setupServer(t)
	owner := seedUser(t, "Owner", "owner@example.com", false)
	form, questions := seedFormWithQuestions(t, owner)

	body := map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": questions["yes_no"].ID, "text": "maybe"},
		},
	}
	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/forms/%d/responses", form.ID), "", body)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestSubmitRequireLoginSetting(t *testing.T) {
	r := setupServer(t)
	owner := seedUser(t, "Owner", "owner@example.com", false)
	form, questions := seedFormWithQuestions(t, owner)

	require.NoError(t, config.DB.Model(&form).
		Update("settings", []byte(`{"require_login":true}`)).Error)

	body := map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": questions["text"].ID, "text": "hello"},
		},
	}
	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/forms/%d/responses", form.ID), "", body)
	require.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())

	token := authToken(t, owner)
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/forms/%d/responses", form.ID), token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var set models.ResponseSet
	require.NoError(t, config.DB.Order("id DESC").First(&set).Error)
	require.NotNil(t, set.UserID)
	require.Equal(t, owner.ID, *set.UserID)
}

func TestSubmitInterviewerAttribution(t *testing.T) {
	r := setupServer(t)
	admin := seedUser(t, "Admin", "admin@example.com", true)
	respondent := seedUser(t, "Respondent", "resp@example.com", false)
	form, questions := seedFormWithQuestions(t, admin)

	body := map[string]interface{}{
		"respondent_id": respondent.ID,
		"answers": []map[string]interface{}{
			{"question_id": questions["text"].ID, "text": "recorded in person"},
		},
	}

	// non-admins may not submit on someone's behalf
	token := authToken(t, respondent)
	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/forms/%d/responses", form.ID), token, body)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	token = authToken(t, admin)
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/forms/%d/responses", form.ID), token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var set models.ResponseSet
	require.NoError(t, config.DB.Order("id DESC").First(&set).Error)
	require.NotNil(t, set.UserID)
	require.Equal(t, respondent.ID, *set.UserID)
	require.NotNil(t, set.InterviewerID)
	require.Equal(t, admin.ID, *set.InterviewerID)
}

func TestSubmitMaxResponsesSetting(t *testing.T) {
	r := setupServer(t)
	owner := seedUser(t, "Owner", "owner@example.com", false)
	form, questions := seedFormWithQuestions(t, owner)

	require.NoError(t, config.DB.Model(&form).
		Update("settings", []byte(`{"max_responses":1}`)).Error)

	body := map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": questions["text"].ID, "text": "first"},
		},
	}
	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/forms/%d/responses", form.ID), "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/forms/%d/responses", form.ID), "", body)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
}

func TestListResponseSets(t *testing.T) {
	r := setupServer(t)
	owner := seedUser(t, "Owner", "owner@example.com", false)
	form, _ := seedFormWithQuestions(t, owner)

	for i := 0; i < 3; i++ {
		require.NoError(t, config.DB.Create(&models.ResponseSet{FormID: form.ID}).Error)
	}

	token := authToken(t, owner)
	w := doJSON(t, r, http.MethodGet,
		fmt.Sprintf("/api/forms/%d/responses?page=1&limit=2", form.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeBody(t, w)
	require.EqualValues(t, 3, resp["total"])
	require.Len(t, resp["response_sets"], 2)
}

func TestFormDashboard(t *testing.T) {
	r := setupServer(t)
	owner := seedUser(t, "Owner", "owner@example.com", false)
	form, questions := seedFormWithQuestions(t, owner)

	ratingChoices := questionChoices(t, questions["rating"])
	mcChoices := questionChoices(t, questions["multiple_choice"])

	// two respondents: ratings Mid and High, one shared multiple choice answer
	for _, pick := range []struct {
		rating uint
		choice uint
		yes    string
	}{
		{ratingChoices[1].ID, mcChoices[0].ID, "yes"},
		{ratingChoices[2].ID, mcChoices[0].ID, "no"},
	} {
		set := models.ResponseSet{FormID: form.ID}
		require.NoError(t, config.DB.Create(&set).Error)
		for slug, ans := range map[string]models.Answer{
			"yes_no":          {Text: pick.yes},
			"multiple_choice": {ChoiceIDs: []uint{pick.choice}},
			"rating":          {ChoiceIDs: []uint{pick.rating}},
		} {
			q := questions[slug]
			qt, err := q.Resolve()
			require.NoError(t, err)
			require.NoError(t, qt.SaveResponse(config.DB, &set, &q, ans))
		}
	}

	token := authToken(t, owner)
	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/forms/%d/dashboard", form.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	results := decodeBody(t, w)["results"].([]interface{})
	require.Len(t, results, 4)

	byType := map[string]map[string]interface{}{}
	for _, v := range results {
		entry := v.(map[string]interface{})
		byType[entry["type"].(string)] = entry
	}

	yn := byType["yes_no"]["stats"].(map[string]interface{})
	require.EqualValues(t, 1, yn["yes"])
	require.EqualValues(t, 1, yn["no"])

	// ratings Mid (position 1) and High (position 2) score 2 and 3
	rating := byType["rating"]["stats"].(map[string]interface{})
	require.InDelta(t, 2.5, rating["avg"].(float64), 0.001)
	require.EqualValues(t, 2, rating["min"])
	require.EqualValues(t, 3, rating["max"])

	mc := byType["multiple_choice"]["stats"].([]interface{})
	require.Len(t, mc, 1)
	first := mc[0].(map[string]interface{})
	require.Equal(t, "Low", first["option"])
	require.EqualValues(t, 2, first["count"])
	require.InDelta(t, 100.0, first["percent"].(float64), 0.001)

	// no text answers were given
	require.Empty(t, byType["text"]["stats"])
}

type wordCloudQuestionType struct{}

func (wordCloudQuestionType) Slug() string       { return "word_cloud" }
func (wordCloudQuestionType) PrettyName() string { return "Word cloud question" }
func (wordCloudQuestionType) HasChoices() bool   { return false }
func (wordCloudQuestionType) ValidateAnswer(tx *gorm.DB, q *models.Question, ans models.Answer) error {
	return nil
}
func (wordCloudQuestionType) SaveResponse(tx *gorm.DB, set *models.ResponseSet, q *models.Question, ans models.Answer) error {
	return nil
}
func (wordCloudQuestionType) Responses(db *gorm.DB, set *models.ResponseSet) ([]models.ResponseRecord, error) {
	return nil, nil
}
func (wordCloudQuestionType) Stats(db *gorm.DB, q *models.Question) (interface{}, error) {
	return map[string]interface{}{"words": []string{}}, nil
}

func TestDashboardDispatchesCustomTypes(t *testing.T) {
	models.RegisterType(wordCloudQuestionType{})

	r := setupServer(t)
	owner := seedUser(t, "Owner", "owner@example.com", false)
	form, _ := seedFormWithQuestions(t, owner)

	q := models.Question{
		FormID:   form.ID,
		Text:     "One word for today",
		Type:     "word_cloud",
		Position: models.DefaultPosition + 10,
	}
	require.NoError(t, config.DB.Create(&q).Error)

	token := authToken(t, owner)
	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/forms/%d/dashboard", form.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	results := decodeBody(t, w)["results"].([]interface{})
	require.Len(t, results, 5)
	last := results[4].(map[string]interface{})
	require.Equal(t, "word_cloud", last["type"])
	require.NotNil(t, last["stats"])
	require.Contains(t, last["stats"].(map[string]interface{}), "words")
}
