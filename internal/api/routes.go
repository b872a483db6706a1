package api

import (
	"net/http"

	"athletix/tracker/internal/config"
	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/metrics"
	"athletix/tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies bundles what the HTTP layer needs from the rest of the app.
type Dependencies struct {
	JWTSecret      string
	AllowedOrigins []string
	Realtime       config.RealtimeConfig

	AuthService    service.AuthService
	TeamService    service.TeamService
	ProfileService service.ProfileService
	Sessions       *service.SessionManager

	Metrics  *metrics.Manager
	Registry *prometheus.Registry
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := NewAuthHandler(deps.AuthService)
	injuryHandler := NewInjuryHandler()
	athleteHandler := NewAthleteHandler()
	messageHandler := NewMessageHandler()
	staffHandler := NewStaffHandler()
	teamHandler := NewTeamHandler(deps.TeamService)
	profileHandler := NewProfileHandler(deps.ProfileService)
	realtimeHandler := NewRealtimeHandler(deps.Realtime, deps.Metrics, deps.AllowedOrigins)

	if deps.Metrics != nil {
		router.Use(RequestMetrics(deps.Metrics))
	}

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if deps.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	authMiddleware := AuthMiddleware(deps.JWTSecret)
	apiV1.GET("/me", authMiddleware, authHandler.Me)

	protected := apiV1.Group("")
	protected.Use(authMiddleware, SessionMiddleware(deps.Sessions))
	{
		protected.GET("/realtime", realtimeHandler.Connect)

		injuries := protected.Group("/injuries")
		{
			injuries.GET("", injuryHandler.ListInjuries)
			injuries.GET("/pending", injuryHandler.PendingInjuries)
			injuries.GET("/options", injuryHandler.FormOptions)
			injuries.POST("", RoleMiddleware(domain.RoleAthlete, domain.RoleTrainer), injuryHandler.ReportInjury)
			injuries.GET("/:injuryId", injuryHandler.GetInjury)
			injuries.PATCH("/:injuryId", injuryHandler.UpdateInjury)
			injuries.POST("/:injuryId/activity", injuryHandler.AddActivity)
		}

		athlete := protected.Group("")
		athlete.Use(RoleMiddleware(domain.RoleAthlete))
		{
			athlete.GET("/dashboard", athleteHandler.Dashboard)
			athlete.POST("/training", athleteHandler.LogTraining)
			athlete.POST("/teams/join", teamHandler.JoinTeam)
		}
		protected.GET("/training", athleteHandler.ListTraining)

		messages := protected.Group("/messages")
		{
			messages.GET("/contacts", messageHandler.Contacts)
			messages.POST("", messageHandler.SendMessage)
			messages.GET("/:userId", messageHandler.Conversation)
			messages.POST("/:userId/read", messageHandler.MarkRead)
		}

		staff := protected.Group("/staff")
		staff.Use(RoleMiddleware(domain.RoleCoach, domain.RoleTrainer))
		{
			staff.GET("/athletes", staffHandler.Roster)
			staff.GET("/athletes/:athleteId", staffHandler.AthleteDetail)
			staff.PUT("/athletes/:athleteId/status", staffHandler.SetStatus)
			staff.GET("/overview", staffHandler.Overview)
			staff.GET("/trends", staffHandler.Trends)
			staff.GET("/heatmap", staffHandler.InjuriesAt)
			staff.GET("/medical/:userId", profileHandler.GetMedical)
		}

		teams := protected.Group("/teams")
		{
			teams.GET("", teamHandler.ListTeams)
			coach := teams.Group("")
			coach.Use(RoleMiddleware(domain.RoleCoach))
			{
				coach.POST("", teamHandler.CreateTeam)
				coach.POST("/:teamId/code", teamHandler.RotateCode)
				coach.GET("/approvals", teamHandler.PendingApprovals)
				coach.POST("/approvals/:athleteId", teamHandler.Approve)
				coach.DELETE("/approvals/:athleteId", teamHandler.Decline)
			}
		}

		profile := protected.Group("/profile")
		{
			profile.GET("/medical", profileHandler.GetMedical)
			profile.PUT("/medical", profileHandler.SaveMedical)
			profile.POST("/avatar/upload-url", profileHandler.RequestAvatarUpload)
			profile.PUT("/avatar", profileHandler.UpdateAvatar)
		}
	}
}
