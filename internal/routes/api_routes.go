package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/junyours/CSDL/internal/handlers"
	"github.com/junyours/CSDL/internal/middleware"
	"github.com/junyours/CSDL/models"
)

// RegisterAPIRoutes регистрирует маршруты API, требующие аутентификации.
func RegisterAPIRoutes(api *gin.RouterGroup) {
	apiGroup := api.Group("/api")
	{
		// --- СЕССИЯ ---
		apiGroup.POST("/logout", handlers.LogoutHandler)
		apiGroup.GET("/me", handlers.MeHandler)
		apiGroup.POST("/face-enrolled", handlers.UpdateFaceEnrolledHandler)
		apiGroup.POST("/change-password", handlers.ChangePasswordHandler)
		apiGroup.POST("/update-profile-photo", handlers.UpdateProfilePhotoHandler)
		apiGroup.POST("/create-user", middleware.RoleMiddleware(models.RoleAdmin), handlers.CreateUserHandler)

		// --- ВНЕШНЯЯ СИСТЕМА ЗАЧИСЛЕНИЙ ---
		apiGroup.GET("/school-structure-api", handlers.SchoolStructureHandler)
		apiGroup.GET("/student-enrollment-api", handlers.StudentEnrollmentHandler)
		apiGroup.GET("/es-enrolled-students", handlers.EnrolledStudentsHandler)

		// --- САНКЦИИ ---
		sanctions := apiGroup.Group("/sanctions")
		{
			sanctions.GET("", handlers.ListSanctionsHandler)
			sanctions.POST("", middleware.RoleMiddleware(models.RoleAdmin), handlers.CreateSanctionHandler)
			sanctions.PATCH("/:id", middleware.RoleMiddleware(models.RoleAdmin), handlers.UpdateSanctionHandler)
		}

		// --- ЛОКАЦИИ ---
		locations := apiGroup.Group("/locations")
		{
			locations.GET("", handlers.ListLocationsHandler)
			locations.POST("", middleware.RoleMiddleware(models.RoleAdmin), handlers.CreateLocationHandler)
			locations.PATCH("/:id/move-to-bin", middleware.RoleMiddleware(models.RoleAdmin), handlers.MoveLocationToBinHandler)
		}

		// --- СОБЫТИЯ ---
		events := apiGroup.Group("/events")
		{
			events.GET("", handlers.ListEventsHandler)
			events.POST("", middleware.RoleMiddleware(models.RoleAdmin), handlers.CreateEventHandler)
			events.PUT("/:id", middleware.RoleMiddleware(models.RoleAdmin), handlers.UpdateEventHandler)
			events.GET("/form-options", handlers.EventFormOptionsHandler)
			events.GET("/:id/export", handlers.ExportEventAttendancesHandler)
		}
		apiGroup.GET("/my-events", handlers.StudentEventsHandler)
		apiGroup.GET("/course-events", handlers.MyEventsHandler)
		apiGroup.GET("/event-participants/:id", handlers.EventParticipantsHandler)

		// --- ПОСЕЩАЕМОСТЬ ---
		apiGroup.POST("/event-attendances", handlers.StoreEventAttendanceHandler)
		apiGroup.GET("/event-attendances", handlers.ListEventAttendancesHandler)
		apiGroup.GET("/event-attendances/ws/:event_id", handlers.EventMonitorWSHandler)
		apiGroup.GET("/student-sanctions", handlers.GetStudentSanctionsHandler)

		// --- РЕЖИМ ПРИЕМА ОТМЕТОК ---
		apiGroup.GET("/attendance-mode", handlers.GetAttendanceModeHandler)
		apiGroup.PUT("/attendance-mode", middleware.RoleMiddleware(models.RoleAdmin), handlers.UpdateAttendanceModeHandler)

		// --- ПОГАШЕНИЯ САНКЦИЙ ---
		settlements := apiGroup.Group("/event-sanction-settlements")
		{
			settlements.GET("", handlers.ListSettlementsHandler)
			settlements.POST("", handlers.StoreSettlementHandler)
			settlements.POST("/update", handlers.VoidSettlementHandler)
			settlements.GET("/receipt/:transaction_code", handlers.SettlementReceiptHandler)
		}

		// --- МОДЕРАТОРЫ ---
		moderators := apiGroup.Group("/user-moderators")
		{
			moderators.GET("", handlers.ListModeratorsHandler)
			moderators.POST("", middleware.RoleMiddleware(models.RoleAdmin), handlers.CreateModeratorHandler)
			moderators.DELETE("/:id", middleware.RoleMiddleware(models.RoleAdmin), handlers.RemoveModeratorHandler)
		}

		// --- СТУДЕНЧЕСКИЙ СОВЕТ ---
		councils := apiGroup.Group("/user-student-councils")
		{
			councils.GET("", handlers.ListCouncilHandler)
			councils.POST("", middleware.RoleMiddleware(models.RoleAdmin), handlers.CreateCouncilMemberHandler)
			councils.DELETE("/:id", middleware.RoleMiddleware(models.RoleAdmin), handlers.RemoveCouncilMemberHandler)
		}
		apiGroup.GET("/search-user", handlers.SearchCouncilCandidateHandler)
		apiGroup.GET("/check-student-council", handlers.CheckCouncilMembershipHandler)
		apiGroup.POST("/council-report", handlers.ExportCouncilReportHandler)

		// --- УВЕДОМЛЕНИЯ ---
		apiGroup.GET("/notifications", handlers.GetUserNotificationsHandler)
		apiGroup.POST("/notifications/mark-as-read", handlers.MarkNotificationReadHandler)
	}
}
