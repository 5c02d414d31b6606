package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes. Nil handlers are skipped.
type Handlers struct {
	Schedules  *ScheduleEntryHandler
	Timetables *TimetableHandler
	Audit      *AuditHandler
	Subjects   *SubjectHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts probes and metrics at the root and the API under prefix.
func RegisterRoutes(r gin.IRouter, prefix string, h Handlers) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(prefix)
	if h.Metrics != nil {
		api.GET("/metrics/summary", h.Metrics.Snapshot)
	}

	if h.Schedules != nil {
		schedules := api.Group("/schedules")
		schedules.POST("/validate", h.Schedules.Validate)
		schedules.POST("", h.Schedules.Create)
		schedules.GET("", h.Schedules.List)
		schedules.GET("/:id", h.Schedules.Get)
		schedules.GET("/:id/history", h.Schedules.History)
		schedules.PATCH("/:id/timeslot", h.Schedules.Reschedule)
		schedules.POST("/:id/timeslot/validate", h.Schedules.ValidateReschedule)
		schedules.PATCH("/:id/teacher", h.Schedules.ChangeTeacher)
		schedules.PATCH("/:id/room", h.Schedules.ChangeRoom)
		schedules.POST("/:id/cancel", h.Schedules.Cancel)
		schedules.POST("/:id/reactivate", h.Schedules.Reactivate)
	}

	if h.Timetables != nil {
		api.GET("/teachers/:id/free-slots", h.Timetables.TeacherFreeSlots)
		api.GET("/teachers/:id/timetable", h.Timetables.TeacherTimetable)
		api.GET("/teachers/:id/load", h.Timetables.TeacherLoad)
		api.GET("/rooms/free", h.Timetables.FreeRooms)
		api.GET("/rooms/:room/timetable", h.Timetables.RoomTimetable)
		api.GET("/classes/:id/timetable", h.Timetables.ClassTimetable)
	}

	if h.Audit != nil {
		api.GET("/terms/:year/:half/conflicts", h.Audit.Conflicts)
		api.POST("/terms/:year/:half/audit", h.Audit.Audit)
	}

	if h.Subjects != nil {
		api.GET("/subjects", h.Subjects.List)
		api.GET("/subjects/:id", h.Subjects.Get)
		api.PUT("/subjects/:id", h.Subjects.Put)
	}
}
