package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/vhoang/dynamicforms-server/controllers"
	"github.com/vhoang/dynamicforms-server/middleware"
)

func SetupRoutes(r *gin.Engine) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	r.GET("/health", controllers.HealthCheck)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", controllers.Register)
			auth.POST("/login", controllers.Login)
			auth.POST("/google/login", controllers.GoogleLoginHandler)
		}
		protected := api.Group("/")
		protected.Use(middleware.AuthJWT())
		{
			protected.GET("/me", controllers.Me)
			protected.GET("/users", middleware.RequireAdmin(), controllers.ListUsers)
		}

		api.GET("/question-types", controllers.ListQuestionTypes)

		forms := api.Group("/forms")
		{
			forms.Use(middleware.AuthJWT())
			forms.POST("", middleware.RateLimitFormsCreate(), controllers.CreateForm)
			forms.GET("/my", controllers.GetMyForms)
			forms.GET("/:id", controllers.GetFormDetail)
			forms.PUT("/:id", middleware.CheckFormOwner(), controllers.UpdateForm)
			forms.DELETE("/:id", middleware.CheckFormOwner(), controllers.DeleteForm)
			forms.PUT("/:id/archive", middleware.CheckFormOwner(), controllers.ArchiveForm)
			forms.PUT("/:id/restore", middleware.CheckFormOwner(), controllers.RestoreForm)
			forms.POST("/:id/share", middleware.CheckFormOwner(), controllers.ShareForm)
			forms.POST("/:id/questions", middleware.CheckFormOwner(), controllers.AddQuestion)
			forms.PUT("/:id/questions/reorder", middleware.CheckFormOwner(), controllers.ReorderQuestions)
			forms.POST("/:id/clone", middleware.CheckFormOwner(), controllers.CloneForm)

			forms.GET("/:id/responses", controllers.GetResponseSets)
			forms.GET("/:id/responses/:set_id", controllers.GetResponseSetDetail)
			forms.GET("/:id/dashboard", controllers.GetFormDashboard)
			forms.POST("/:id/export", middleware.CheckFormOwner(), controllers.CreateExport)
		}

		api.PUT("/questions/:id", middleware.AuthJWT(), middleware.CheckQuestionOwner(), controllers.UpdateQuestion)
		api.DELETE("/questions/:id", middleware.AuthJWT(), middleware.CheckQuestionOwner(), controllers.DeleteQuestion)
		api.POST("/questions/:id/choices", middleware.AuthJWT(), middleware.CheckQuestionOwner(), controllers.AddChoice)
		api.PUT("/questions/:id/choices/:choice_id", middleware.AuthJWT(), middleware.CheckQuestionOwner(), controllers.UpdateChoice)
		api.DELETE("/questions/:id/choices/:choice_id", middleware.AuthJWT(), middleware.CheckQuestionOwner(), controllers.DeleteChoice)

		api.GET("/forms/public/:share_token", controllers.GetPublicForm)

		api.GET("/exports/:job_id", middleware.AuthJWT(), controllers.GetExport)

		api.POST("/forms/:id/responses",
			middleware.OptionalAuth(),
			middleware.RateLimitResponsesSubmit(),
			controllers.SubmitResponses)
	}
}
