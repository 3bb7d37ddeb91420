package v1

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/oncohub/oncohub/internal/config"
	"github.com/oncohub/oncohub/internal/domain"
	"github.com/oncohub/oncohub/pkg/auth"
	"github.com/oncohub/oncohub/pkg/metrics"
)

type RouterDeps struct {
	Config     *config.Config
	DB         *gorm.DB
	JWTManager *auth.JWTManager
	Collector  *metrics.Collector
	Log        *zap.Logger

	Auth    *AuthHandler
	Patient *PatientHandler
	Doctor  *DoctorHandler
	Request *RequestHandler
	Risk    *RiskHandler
	Case    *CaseHandler
	AI      *AIHandler
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(MetricsMiddleware(deps.Collector))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  deps.Config.CORS.AllowedOrigins,
		AllowMethods:  deps.Config.CORS.AllowedMethods,
		AllowHeaders:  deps.Config.CORS.AllowedHeaders,
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        deps.Config.CORS.MaxAge,
	}))
	r.Use(GlobalRateLimiter(deps.Config.RateLimit.RequestsPerSecond, deps.Config.RateLimit.BurstSize))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": deps.Config.App.Name,
			"version": deps.Config.App.Version,
		})
	})
	r.GET("/readyz", func(c *gin.Context) {
		sqlDB, err := deps.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(LoginRateLimiter(deps.Config.RateLimit.AuthRequestsPerMinute, deps.Log))
	{
		authGroup.POST("/register", deps.Auth.Register)
		authGroup.POST("/login", deps.Auth.Login)
		authGroup.POST("/refresh", deps.Auth.Refresh)
	}

	protected := api.Group("")
	protected.Use(AuthMiddleware(deps.JWTManager))
	{
		me := protected.Group("/me")
		{
			me.POST("/password", deps.Auth.ChangePassword)
			me.POST("/mfa/enable", deps.Auth.EnableMFA)
			me.POST("/mfa/verify", deps.Auth.VerifyMFA)
		}

		patients := protected.Group("/patients")
		{
			patients.POST("", RequireRole(domain.RolePatient), deps.Patient.Create)
			patients.GET("", RequireRole(domain.RoleAdmin), deps.Patient.List)
			patients.GET("/:id", deps.Patient.Get)
			patients.PATCH("/:id", deps.Patient.Update)
			patients.DELETE("/:id", RequireRole(domain.RoleAdmin), deps.Patient.Deactivate)

			patients.POST("/:id/assessments", deps.Risk.Assess)
			patients.GET("/:id/assessments", deps.Case.ListAssessments)

			patients.GET("/:id/records", deps.Case.ListRecords)

			patients.POST("/:id/files", deps.Case.UploadFile)
			patients.GET("/:id/files", deps.Case.ListFiles)

			ai := patients.Group("/:id/ai", RequireRole(domain.RoleDoctor))
			{
				ai.POST("/treatment-plan", deps.AI.DraftTreatmentPlan)
				ai.POST("/knowledge-graph", deps.AI.DraftKnowledgeGraph)
			}
		}

		doctors := protected.Group("/doctors")
		{
			doctors.POST("", RequireRole(domain.RoleDoctor), deps.Doctor.Create)
			doctors.GET("", deps.Doctor.List)
			doctors.GET("/:id", deps.Doctor.Get)
			doctors.PATCH("/:id", deps.Doctor.Update)
		}

		requests := protected.Group("/requests")
		{
			requests.POST("", RequireRole(domain.RolePatient), deps.Request.Create)
			requests.GET("", deps.Request.List)
			requests.GET("/:id", deps.Request.Get)
			requests.POST("/:id/decision", RequireRole(domain.RoleDoctor), deps.Request.Decide)
			requests.PATCH("/:id/proposal", RequireRole(domain.RoleDoctor), deps.Request.UpdateProposal)
		}

		records := protected.Group("/records", RequireRole(domain.RoleDoctor))
		{
			records.POST("", deps.Case.CreateRecord)
			records.POST("/:id/addenda", deps.Case.AddAddendum)
		}
		protected.GET("/records/:id", deps.Case.GetRecord)

		protected.GET("/files/:id", deps.Case.DownloadFile)
	}

	return r
}
