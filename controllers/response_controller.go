package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vhoang/dynamicforms-server/config"
	"github.com/vhoang/dynamicforms-server/middleware"
	"github.com/vhoang/dynamicforms-server/models"
)

type submitReq struct {
	Answers []models.Answer `json:"answers" binding:"required"`
	// RespondentID lets an admin record answers on someone's behalf; the
	// admin is then stored as the interviewer.
	RespondentID *uint `json:"respondent_id"`
}

type formSettings struct {
	RequireLogin bool `json:"require_login"`
	MaxResponses *int `json:"max_responses"`
}

// SubmitResponses validates a set of answers against the form's questions,
// resolves each question's concrete type through the registry and persists
// every answer into its type's own table, all in one transaction.
func SubmitResponses(c *gin.Context) {
	formID, err := strconv.Atoi(c.Param("id"))
	if err != nil || formID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
		return
	}

	var form models.Form
	if err := config.DB.
		Where("id = ? AND status = 'active'", formID).
		First(&form).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Form not found"})
		return
	}

	var settings formSettings
	if len(form.Settings) > 0 {
		if err := json.Unmarshal(form.Settings, &settings); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Form settings are invalid"})
			return
		}
	}

	if settings.MaxResponses != nil {
		var count int64
		if err := config.DB.Model(&models.ResponseSet{}).
			Where("form_id = ?", formID).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot count responses"})
			return
		}
		if count >= int64(*settings.MaxResponses) {
			c.JSON(http.StatusForbidden, gin.H{"message": "Form has reached its response limit"})
			return
		}
	}

	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid payload: " + err.Error()})
		return
	}

	var authUser *models.User
	if v, exists := c.Get(middleware.CtxUser); exists {
		if u, ok := v.(models.User); ok {
			authUser = &u
		}
	}
	if settings.RequireLogin && authUser == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "This form requires login"})
		return
	}

	var userID, interviewerID *uint
	if authUser != nil {
		userID = &authUser.ID
	}
	if req.RespondentID != nil {
		if authUser == nil || !authUser.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"message": "Only admins may submit on someone's behalf"})
			return
		}
		var respondent models.User
		if err := config.DB.First(&respondent, *req.RespondentID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Respondent not found"})
			return
		}
		userID = &respondent.ID
		interviewerID = &authUser.ID
	}

	// load the form's questions and index the answers
	var questions []models.Question
	if err := config.DB.
		Where("form_id = ?", formID).
		Order("position ASC, id ASC").
		Find(&questions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot read questions"})
		return
	}
	byQuestion := map[uint]models.Answer{}
	for _, ans := range req.Answers {
		if _, dup := byQuestion[ans.QuestionID]; dup {
			c.JSON(http.StatusBadRequest,
				gin.H{"message": fmt.Sprintf("Duplicate answer for question %d", ans.QuestionID)})
			return
		}
		byQuestion[ans.QuestionID] = ans
	}

	known := map[uint]*models.Question{}
	for i := range questions {
		known[questions[i].ID] = &questions[i]
	}
	for qid := range byQuestion {
		if _, ok := known[qid]; !ok {
			c.JSON(http.StatusBadRequest,
				gin.H{"message": fmt.Sprintf("Question %d does not belong to this form", qid)})
			return
		}
	}

	// validate every question, including required ones with no answer at all
	for i := range questions {
		q := &questions[i]
		qt, rerr := q.Resolve()
		if rerr != nil {
			log.Printf("cannot resolve question %d: %v", q.ID, rerr)
			c.JSON(http.StatusInternalServerError,
				gin.H{"message": fmt.Sprintf("Question %d has an unknown type", q.ID)})
			return
		}
		ans, answered := byQuestion[q.ID]
		if !answered {
			if q.Required {
				c.JSON(http.StatusBadRequest,
					gin.H{"message": fmt.Sprintf("Question %d is required", q.ID)})
				return
			}
			continue
		}
		if verr := qt.ValidateAnswer(config.DB, q, ans); verr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": verr.Error()})
			return
		}
	}

	var set models.ResponseSet
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		set = models.ResponseSet{
			FormID:        uint(formID),
			UserID:        userID,
			InterviewerID: interviewerID,
		}
		if err := tx.Create(&set).Error; err != nil {
			return err
		}

		for i := range questions {
			q := &questions[i]
			ans, answered := byQuestion[q.ID]
			if !answered {
				continue
			}
			qt, rerr := q.Resolve()
			if rerr != nil {
				return rerr
			}
			if serr := qt.SaveResponse(tx, &set, q, ans); serr != nil {
				return fmt.Errorf("cannot save answer for question %d: %w", q.ID, serr)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("failed to save response set: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot save responses"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"response_set_id": set.ID, "form_id": formID})
}

// GET /api/forms/:id/responses?page=1&limit=10&start_date=2025-09-01&end_date=2025-09-21
func GetResponseSets(c *gin.Context) {
	formID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
		return
	}

	var form models.Form
	if err := config.DB.First(&form, formID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Form not found"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := config.DB.Model(&models.ResponseSet{}).
		Where("form_id = ?", formID)

	if s := c.Query("start_date"); s != "" {
		if startDate, err := time.Parse("2006-01-02", s); err == nil {
			query = query.Where("added >= ?", startDate)
		}
	}
	if s := c.Query("end_date"); s != "" {
		if endDate, err := time.Parse("2006-01-02", s); err == nil {
			// +1 day so the end date is inclusive
			query = query.Where("added < ?", endDate.Add(24*time.Hour))
		}
	}

	var total int64
	query.Count(&total)

	var sets []models.ResponseSet
	if err := query.
		Preload("User").
		Order("added DESC").
		Limit(limit).Offset(offset).
		Find(&sets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot list responses"})
		return
	}

	resp := []gin.H{}
	for _, s := range sets {
		entry := gin.H{
			"id":             s.ID,
			"user_id":        s.UserID,
			"interviewer_id": s.InterviewerID,
			"added":          s.Added,
		}
		if s.User != nil {
			entry["user"] = gin.H{"id": s.User.ID, "name": s.User.Name, "email": s.User.Email}
		}
		resp = append(resp, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"form_id":       formID,
		"page":          page,
		"limit":         limit,
		"total":         total,
		"response_sets": resp,
	})
}

// GetResponseSetDetail gathers the set's answers from every concrete response
// table through the registry.
func GetResponseSetDetail(c *gin.Context) {
	formID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
		return
	}
	setID, err := strconv.Atoi(c.Param("set_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid response set id"})
		return
	}

	var set models.ResponseSet
	if err := config.DB.
		Preload("User").
		Where("id = ? AND form_id = ?", setID, formID).
		First(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Response set not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot read response set"})
		return
	}

	records, err := set.Responses(config.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot read responses"})
		return
	}

	resp := gin.H{
		"id":             set.ID,
		"form_id":        set.FormID,
		"user_id":        set.UserID,
		"interviewer_id": set.InterviewerID,
		"added":          set.Added,
		"responses":      records,
	}
	if set.User != nil {
		resp["user"] = gin.H{"id": set.User.ID, "name": set.User.Name, "email": set.User.Email}
	}

	c.JSON(http.StatusOK, resp)
}

// GetFormDashboard aggregates answers per question, shaped by question type.
func GetFormDashboard(c *gin.Context) {
	formID := c.Param("id")
	db := config.DB

	var questions []models.Question
	if err := db.Where("form_id = ?", formID).
		Order("position ASC, id ASC").
		Find(&questions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot read questions"})
		return
	}

	results := []gin.H{}

	// each type aggregates its own table, so custom registered types get
	// dashboard stats too
	for i := range questions {
		q := &questions[i]
		stat := gin.H{
			"question_id": q.ID,
			"type":        q.Type,
			"text":        q.Text,
			"stats":       nil,
		}

		qt, err := q.Resolve()
		if err != nil {
			log.Printf("cannot resolve question %d for dashboard: %v", q.ID, err)
			results = append(results, stat)
			continue
		}

		stats, err := qt.Stats(db, q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot aggregate responses"})
			return
		}
		stat["stats"] = stats

		results = append(results, stat)
	}

	c.JSON(http.StatusOK, gin.H{
		"form_id": formID,
		"results": results,
	})
}
