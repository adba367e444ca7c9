// Package handler exposes the HTTP surface over gin.
package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"campusattend/internal/apperr"
	"campusattend/internal/attendance"
	"campusattend/internal/auth"
	"campusattend/internal/course"
	"campusattend/internal/geo"
	"campusattend/internal/queue"
	"campusattend/internal/schedule"
	"campusattend/internal/settings"
	"campusattend/internal/store"
)

// Handler carries the services behind every route.
type Handler struct {
	attendance *attendance.Service
	courses    *course.Service
	schedules  *schedule.Service
	settings   *settings.Service
	queue      queue.Queue
	db         *store.DB
	redis      *store.Redis
}

// New wires the handler.
func New(att *attendance.Service, crs *course.Service, sch *schedule.Service, set *settings.Service, q queue.Queue, db *store.DB, rds *store.Redis) *Handler {
	return &Handler{
		attendance: att,
		courses:    crs,
		schedules:  sch,
		settings:   set,
		queue:      q,
		db:         db,
		redis:      rds,
	}
}

// Register mounts every versioned route. authMW guards the whole group.
func (h *Handler) Register(r gin.IRouter, authMW ...gin.HandlerFunc) {
	staff := auth.RequireRoles(course.RoleLecturer, course.RoleAdmin)

	v1 := r.Group("/v1", authMW...)

	v1.POST("/attendance/clockin", h.ClockIn)
	v1.POST("/attendance/clockout", h.ClockOut)
	v1.GET("/attendance/summary/user/:userId/usercourse/:userCourseId", h.AttendanceSummary)
	v1.GET("/attendance/class/:classId", staff, h.AttendanceByClass)
	v1.GET("/attendance/user/:userId", h.AttendanceByUser)
	v1.GET("/attendance/user/:userId/class/:classId", h.AttendanceForUserAndClass)

	v1.POST("/user-courses/register", h.RegisterCourses)
	v1.GET("/user-courses", h.ListUserCourses)
	v1.GET("/user-courses/:id", h.GetUserCourse)
	v1.PATCH("/user-courses/:id/complete", h.CompleteUserCourse)
	v1.DELETE("/user-courses/:id", h.RemoveUserCourse)

	v1.POST("/curriculum-courses", auth.RequireRoles(course.RoleAdmin), h.CreateCurriculumCourse)

	v1.GET("/class-settings/course/:courseId", h.GetClassSettings)
	v1.PUT("/class-settings/course/:courseId", staff, h.PutClassSettings)
	v1.POST("/class-settings/course/:courseId/reset", staff, h.ResetClassSettings)

	v1.POST("/class-schedules", staff, h.CreateSchedule)
	v1.POST("/classes/:id/start", staff, h.StartClass)
	v1.POST("/classes/:id/complete", staff, h.CompleteClass)
	v1.POST("/classes/:id/cancel", staff, h.CancelClass)
	v1.GET("/classes/:id", h.GetClass)
	v1.GET("/courses/:courseId/classes", h.ListClassesByCourse)
}

// ---------- Envelope ----------

func ok(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{"success": true, "message": message, "data": data})
}

func fail(c *gin.Context, err error) {
	c.JSON(apperr.StatusCode(err), gin.H{"success": false, "message": apperr.Message(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
}

func actorFrom(c *gin.Context) (course.Actor, bool) {
	claims, found := auth.ClaimsFrom(c)
	if !found {
		fail(c, apperr.Unauthorized("missing bearer token"))
		return course.Actor{}, false
	}
	return course.Actor{ID: claims.Subject, Role: claims.Role}, true
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if err := h.db.Client.PingContext(ctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	redisOK := h.redis == nil || h.redis.Healthy(ctx)
	if !redisOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status})
}

// ---------- Attendance ----------

type clockInRequest struct {
	User               string          `json:"user"`
	Class              string          `json:"class" binding:"required"`
	CheckInCoordinates geo.Coordinates `json:"checkInCoordinates" binding:"required"`
	CheckInTime        time.Time       `json:"checkInTime"`
}

type clockOutRequest struct {
	Class               string          `json:"class" binding:"required"`
	CheckOutCoordinates geo.Coordinates `json:"checkOutCoordinates" binding:"required"`
	CheckOutTime        time.Time       `json:"checkOutTime"`
}

func (h *Handler) ClockIn(c *gin.Context) {
	actor, found := actorFrom(c)
	if !found {
		return
	}
	var req clockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	// a lecturer or course rep may record another user's check-in
	userID := req.User
	if userID == "" {
		userID = actor.ID
	}

	rec, err := h.attendance.ClockIn(c.Request.Context(), req.Class, userID, req.CheckInCoordinates, req.CheckInTime)
	if err != nil {
		fail(c, err)
		return
	}

	h.publishAttendance(c.Request.Context(), rec, "clock_in")
	ok(c, http.StatusCreated, "Clock-in successful", rec)
}

func (h *Handler) ClockOut(c *gin.Context) {
	actor, found := actorFrom(c)
	if !found {
		return
	}
	var req clockOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rec, err := h.attendance.ClockOut(c.Request.Context(), req.Class, actor.ID, req.CheckOutCoordinates, req.CheckOutTime)
	if err != nil {
		fail(c, err)
		return
	}

	h.publishAttendance(c.Request.Context(), rec, "clock_out")
	ok(c, http.StatusOK, "Clock-out successful", rec)
}

func (h *Handler) AttendanceSummary(c *gin.Context) {
	sum, err := h.attendance.Summarize(c.Request.Context(), c.Param("userId"), c.Param("userCourseId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Attendance summary", sum)
}

func (h *Handler) AttendanceByClass(c *gin.Context) {
	rows, err := h.attendance.ListByClass(c.Request.Context(), c.Param("classId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Attendance records", rows)
}

func (h *Handler) AttendanceByUser(c *gin.Context) {
	rows, err := h.attendance.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Attendance records", rows)
}

func (h *Handler) AttendanceForUserAndClass(c *gin.Context) {
	rec, err := h.attendance.GetByUserAndClass(c.Request.Context(), c.Param("userId"), c.Param("classId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Attendance record", rec)
}

func (h *Handler) publishAttendance(ctx context.Context, rec *attendance.Record, action string) {
	if h.queue == nil {
		return
	}
	msg, err := queue.NewMessage(queue.TypeAttendanceRecorded, queue.AttendanceEvent{
		AttendanceID: rec.ID,
		UserID:       rec.UserID,
		ClassID:      rec.ClassID,
		Action:       action,
		OccurredAt:   time.Now().UTC(),
	})
	if err == nil {
		err = h.queue.Publish(ctx, msg)
	}
	if err != nil {
		log.Printf("publish attendance event: %v", err)
	}
}

// ---------- Course registration ----------

func (h *Handler) RegisterCourses(c *gin.Context) {
	actor, found := actorFrom(c)
	if !found {
		return
	}
	var req course.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rows, err := h.courses.RegisterCourses(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Courses registered successfully", rows)
}

func (h *Handler) ListUserCourses(c *gin.Context) {
	actor, found := actorFrom(c)
	if !found {
		return
	}
	userID := c.Query("user")
	if userID == "" {
		userID = actor.ID
	}

	level, _ := strconv.Atoi(c.Query("level"))
	rows, err := h.courses.ListUserCourses(c.Request.Context(), userID, course.Filter{
		AcademicYear: c.Query("academicYear"),
		Department:   c.Query("department"),
		Level:        level,
		Semester:     c.Query("semester"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "User courses", rows)
}

func (h *Handler) GetUserCourse(c *gin.Context) {
	uc, err := h.courses.GetUserCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "User course", uc)
}

func (h *Handler) CompleteUserCourse(c *gin.Context) {
	uc, err := h.courses.CompleteUserCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "User course completed", uc)
}

func (h *Handler) RemoveUserCourse(c *gin.Context) {
	if err := h.courses.RemoveUserCourse(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "User course removed", nil)
}

func (h *Handler) CreateCurriculumCourse(c *gin.Context) {
	var req course.CurriculumCourse
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cc, err := h.courses.CreateCurriculumCourse(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Curriculum course created", cc)
}

// ---------- Class settings ----------

func (h *Handler) GetClassSettings(c *gin.Context) {
	set, err := h.settings.Resolve(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Class settings", set)
}

func (h *Handler) PutClassSettings(c *gin.Context) {
	var p settings.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	set, err := h.settings.UpsertForCourse(c.Request.Context(), c.Param("courseId"), p)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Class settings updated", set)
}

func (h *Handler) ResetClassSettings(c *gin.Context) {
	set, err := h.settings.ResetToDefault(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Class settings reset to defaults", set)
}

// ---------- Schedules and classes ----------

func (h *Handler) CreateSchedule(c *gin.Context) {
	var req schedule.ScheduleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sched, cls, err := h.schedules.CreateSchedule(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Class schedule created", gin.H{"schedule": sched, "class": cls})
}

type startClassRequest struct {
	Geolocation *geo.Coordinates `json:"geolocation"`
	Timestamp   time.Time        `json:"timestamp"`
}

func (h *Handler) StartClass(c *gin.Context) {
	var req startClassRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cls, err := h.schedules.StartClass(c.Request.Context(), c.Param("id"), req.Geolocation, req.Timestamp)
	if err != nil {
		fail(c, err)
		return
	}
	h.publishClass(c.Request.Context(), queue.TypeClassStarted, cls)
	ok(c, http.StatusOK, "Class started", cls)
}

type completeClassRequest struct {
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) CompleteClass(c *gin.Context) {
	var req completeClassRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cls, err := h.schedules.CompleteClass(c.Request.Context(), c.Param("id"), req.Timestamp)
	if err != nil {
		fail(c, err)
		return
	}
	h.publishClass(c.Request.Context(), queue.TypeClassCompleted, cls)
	ok(c, http.StatusOK, "Class completed", cls)
}

func (h *Handler) CancelClass(c *gin.Context) {
	cls, err := h.schedules.CancelClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Class cancelled", cls)
}

func (h *Handler) GetClass(c *gin.Context) {
	cls, err := h.schedules.GetClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Class", cls)
}

func (h *Handler) ListClassesByCourse(c *gin.Context) {
	rows, err := h.schedules.ListClassesByCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Classes", rows)
}

func (h *Handler) publishClass(ctx context.Context, msgType string, cls *schedule.Class) {
	if h.queue == nil {
		return
	}
	set, err := h.settings.Resolve(ctx, cls.CurriculumCourseID)
	if err != nil {
		log.Printf("resolve settings for course %s: %v", cls.CurriculumCourseID, err)
		return
	}
	if !set.ShouldSendNotifications {
		return
	}
	msg, err := queue.NewMessage(msgType, queue.ClassEvent{
		ClassID:            cls.ID,
		ClassName:          cls.Name,
		CurriculumCourseID: cls.CurriculumCourseID,
		OccurredAt:         time.Now().UTC(),
	})
	if err == nil {
		err = h.queue.Publish(ctx, msg)
	}
	if err != nil {
		log.Printf("publish class event: %v", err)
	}
}
