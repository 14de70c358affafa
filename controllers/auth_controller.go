package controllers

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/idtoken"

	"github.com/vhoang/dynamicforms-server/config"
	"github.com/vhoang/dynamicforms-server/middleware"
	"github.com/vhoang/dynamicforms-server/models"
	"github.com/vhoang/dynamicforms-server/utils"
)

type registerReq struct {
	Name     string `json:"name" binding:"required,min=1"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	var count int64
	config.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "Email already registered"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot hash password"})
		return
	}

	u := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
	}

	if err := config.DB.Create(&u).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot create account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": gin.H{
			"id":         u.ID,
			"name":       u.Name,
			"email":      u.Email,
			"is_admin":   u.IsAdmin,
			"created_at": u.CreatedAt,
		},
	})
}

type loginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	var u models.User
	if err := config.DB.Where("email = ?", req.Email).First(&u).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Wrong email or password"})
		return
	}
	if !utils.CheckPassword(u.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Wrong email or password"})
		return
	}

	role := "user"
	if u.IsAdmin {
		role = "admin"
	}
	token, err := utils.GenerateToken(fmt.Sprintf("%d", u.ID), role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":       u.ID,
			"name":     u.Name,
			"email":    u.Email,
			"is_admin": u.IsAdmin,
		},
	})
}

type googleLoginReq struct {
	IDToken string `json:"id_token" binding:"required"`
}

// GoogleLoginHandler verifies a Google ID token and signs the user in,
// creating the account on first login.
func GoogleLoginHandler(c *gin.Context) {
	var req googleLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	if clientID == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Google login is not configured"})
		return
	}

	payload, err := idtoken.Validate(context.Background(), req.IDToken, clientID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid Google token"})
		return
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Google token has no email"})
		return
	}

	var u models.User
	err = config.DB.Where("email = ?", email).First(&u).Error
	if err != nil {
		// first login: random password, account is google-only until reset
		hash, herr := utils.HashPassword(payload.Subject)
		if herr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot create account"})
			return
		}
		u = models.User{Name: name, Email: email, Password: hash}
		if cerr := config.DB.Create(&u).Error; cerr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot create account"})
			return
		}
	}

	role := "user"
	if u.IsAdmin {
		role = "admin"
	}
	token, err := utils.GenerateToken(fmt.Sprintf("%d", u.ID), role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":       u.ID,
			"name":     u.Name,
			"email":    u.Email,
			"is_admin": u.IsAdmin,
		},
	})
}

// ListUsers is the admin-only user listing, used to pick a respondent when
// submitting answers on someone's behalf.
func ListUsers(c *gin.Context) {
	q := config.DB.Model(&models.User{}).Order("id ASC")
	if s := c.Query("search"); s != "" {
		q = q.Where("name LIKE ? OR email LIKE ?", "%"+s+"%", "%"+s+"%")
	}

	var users []models.User
	if err := q.Limit(100).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot list users"})
		return
	}

	resp := []gin.H{}
	for _, u := range users {
		resp = append(resp, gin.H{
			"id":       u.ID,
			"name":     u.Name,
			"email":    u.Email,
			"is_admin": u.IsAdmin,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": resp})
}

// Me returns the authenticated user.
func Me(c *gin.Context) {
	u := c.MustGet(middleware.CtxUser).(models.User)
	c.JSON(http.StatusOK, gin.H{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"is_admin":   u.IsAdmin,
		"created_at": u.CreatedAt,
	})
}
