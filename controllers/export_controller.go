package controllers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/vhoang/dynamicforms-server/config"
	"github.com/vhoang/dynamicforms-server/models"
)

type exportReq struct {
	Format    string  `json:"format"`
	RangeFrom *string `json:"range_from,omitempty"`
	RangeTo   *string `json:"range_to,omitempty"`
}

var exportHeader = []string{"response_set_id", "user_id", "added", "question_id", "type", "value"}

// POST /api/forms/:id/export
func CreateExport(c *gin.Context) {
	id := c.Param("id")

	var form models.Form
	if err := config.DB.First(&form, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Form not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "DB error"})
		return
	}

	var req exportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid payload"})
		return
	}
	if req.Format == "" {
		req.Format = "csv"
	}
	if req.Format != "csv" && req.Format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "format must be csv or xlsx"})
		return
	}

	var fromPtr, toPtr *time.Time
	if req.RangeFrom != nil {
		if t, err := time.Parse(time.RFC3339, *req.RangeFrom); err == nil {
			fromPtr = &t
		}
	}
	if req.RangeTo != nil {
		if t, err := time.Parse(time.RFC3339, *req.RangeTo); err == nil {
			toPtr = &t
		}
	}

	jobID := uuid.New().String()
	job := models.ExportJob{
		JobID:     jobID,
		FormID:    form.ID,
		Format:    req.Format,
		RangeFrom: fromPtr,
		RangeTo:   toPtr,
		Status:    "queued",
	}
	config.DB.Create(&job)

	go processExportJob(jobID)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"status": "queued",
	})
}

// GET /api/exports/:job_id
func GetExport(c *gin.Context) {
	jobID := c.Param("job_id")
	var job models.ExportJob
	if err := config.DB.First(&job, "job_id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "DB error"})
		return
	}

	if job.Status == "done" && job.FilePath != nil {
		c.FileAttachment(*job.FilePath, path.Base(*job.FilePath))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": job.JobID,
		"status": job.Status,
		"error":  job.ErrorMsg,
	})
}

func failExportJob(job *models.ExportJob, err error) {
	em := err.Error()
	config.DB.Model(job).Updates(map[string]interface{}{"status": "failed", "error_msg": em})
}

func processExportJob(jobID string) {
	var job models.ExportJob
	if err := config.DB.First(&job, "job_id = ?", jobID).Error; err != nil {
		return
	}
	config.DB.Model(&job).Update("status", "processing")

	rows, err := exportRows(&job)
	if err != nil {
		failExportJob(&job, err)
		return
	}

	outDir := "./exports"
	os.MkdirAll(outDir, 0755)
	outPath := path.Join(outDir, fmt.Sprintf("export_%s.%s", job.JobID, job.Format))

	switch job.Format {
	case "xlsx":
		err = writeXLSX(outPath, rows)
	default:
		err = writeCSV(outPath, rows)
	}
	if err != nil {
		failExportJob(&job, err)
		return
	}

	config.DB.Model(&job).Updates(map[string]interface{}{"status": "done", "file_path": outPath})
}

// exportRows flattens every response set in range to one row per answer.
func exportRows(job *models.ExportJob) ([][]string, error) {
	q := config.DB.Where("form_id = ?", job.FormID)
	if job.RangeFrom != nil {
		q = q.Where("added >= ?", job.RangeFrom)
	}
	if job.RangeTo != nil {
		q = q.Where("added <= ?", job.RangeTo)
	}

	var sets []models.ResponseSet
	if err := q.Order("added ASC").Find(&sets).Error; err != nil {
		return nil, err
	}

	rows := [][]string{exportHeader}
	for i := range sets {
		set := &sets[i]
		records, err := set.Responses(config.DB)
		if err != nil {
			return nil, err
		}
		userID := ""
		if set.UserID != nil {
			userID = fmt.Sprintf("%d", *set.UserID)
		}
		for _, r := range records {
			rows = append(rows, []string{
				fmt.Sprintf("%d", set.ID),
				userID,
				set.Added.Format(time.RFC3339),
				fmt.Sprintf("%d", r.QuestionID),
				r.Type,
				r.Value,
			})
		}
	}
	return rows, nil
}

func writeCSV(outPath string, rows [][]string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeXLSX(outPath string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Responses"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(outPath)
}
