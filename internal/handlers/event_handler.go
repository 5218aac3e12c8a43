package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/models"
)

// EventRequest - тело создания/обновления события. Набор обязательных
// полей времени зависит от attendance_type.
type EventRequest struct {
	SchoolYearID uint   `json:"school_year_id" binding:"required"`
	EventName    string `json:"event_name" binding:"required,max=255"`
	LocationID   uint   `json:"location_id" binding:"required"`
	EventDate    string `json:"event_date" binding:"required,datetime=2006-01-02"`

	AttendanceType string `json:"attendance_type" binding:"required,oneof=single double"`

	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	FirstStartTime  *string `json:"first_start_time"`
	FirstEndTime    *string `json:"first_end_time"`
	SecondStartTime *string `json:"second_start_time"`
	SecondEndTime   *string `json:"second_end_time"`

	AttendanceDuration int `json:"attendance_duration" binding:"required,min=1"`

	ParticipantCourseID    models.IDList `json:"participant_course_id" binding:"required"`
	ParticipantYearLevelID models.IDList `json:"participant_year_level_id" binding:"required"`

	SanctionID uint `json:"sanction_id" binding:"required"`

	IsCancelled *bool `json:"is_cancelled"`
	Status      *bool `json:"status"`
}

// validateTimes проверяет условные поля времени: single требует пару
// start/end, double - обе пары first_*/second_*, каждая с end позже start.
func (r *EventRequest) validateTimes() error {
	checkPair := func(start, end *string, startName, endName string) error {
		if start == nil || *start == "" {
			return fmt.Errorf("%s is required", startName)
		}
		if end == nil || *end == "" {
			return fmt.Errorf("%s is required", endName)
		}
		st, err := time.Parse("15:04", *start)
		if err != nil {
			return fmt.Errorf("%s must be in H:i format", startName)
		}
		et, err := time.Parse("15:04", *end)
		if err != nil {
			return fmt.Errorf("%s must be in H:i format", endName)
		}
		if !et.After(st) {
			return fmt.Errorf("%s must be after %s", endName, startName)
		}
		return nil
	}

	if r.AttendanceType == models.AttendanceTypeSingle {
		return checkPair(r.StartTime, r.EndTime, "start_time", "end_time")
	}
	if err := checkPair(r.FirstStartTime, r.FirstEndTime, "first_start_time", "first_end_time"); err != nil {
		return err
	}
	return checkPair(r.SecondStartTime, r.SecondEndTime, "second_start_time", "second_end_time")
}

// apply переносит проверенные поля запроса в модель. Поля времени чужого
// типа посещаемости обнуляются.
func (r *EventRequest) apply(event *models.Event) {
	eventDate, _ := time.Parse("2006-01-02", r.EventDate)

	event.SchoolYearID = r.SchoolYearID
	event.EventName = r.EventName
	event.LocationID = r.LocationID
	event.EventDate = eventDate
	event.AttendanceType = r.AttendanceType
	event.AttendanceDuration = r.AttendanceDuration
	event.ParticipantCourseID = r.ParticipantCourseID
	event.ParticipantYearLevelID = r.ParticipantYearLevelID
	event.SanctionID = r.SanctionID

	if r.AttendanceType == models.AttendanceTypeSingle {
		event.StartTime = r.StartTime
		event.EndTime = r.EndTime
		event.FirstStartTime = nil
		event.FirstEndTime = nil
		event.SecondStartTime = nil
		event.SecondEndTime = nil
	} else {
		event.StartTime = nil
		event.EndTime = nil
		event.FirstStartTime = r.FirstStartTime
		event.FirstEndTime = r.FirstEndTime
		event.SecondStartTime = r.SecondStartTime
		event.SecondEndTime = r.SecondEndTime
	}
}

// ListEventsHandler возвращает активные события с расшифровкой учебного
// года, курсов и уровней из справочника внешней системы.
func ListEventsHandler(c *gin.Context) {
	var events []models.Event
	if err := config.DB.Preload("Location").Preload("Sanction").
		Where("status = ?", true).
		Order("event_date desc").
		Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch events."})
		return
	}

	structure, err := fetchSchoolStructureMaps(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch school structure from API"})
		return
	}

	data := make([]gin.H, 0, len(events))
	for _, event := range events {
		data = append(data, gin.H{
			"id":                      event.ID,
			"event_name":              event.EventName,
			"event_date":              event.EventDate.Format("2006-01-02"),
			"attendance_type":         event.AttendanceType,
			"start_time":              event.StartTime,
			"end_time":                event.EndTime,
			"first_start_time":        event.FirstStartTime,
			"first_end_time":          event.FirstEndTime,
			"second_start_time":       event.SecondStartTime,
			"second_end_time":         event.SecondEndTime,
			"attendance_duration":     event.AttendanceDuration,
			"school_year":             structure.schoolYears[event.SchoolYearID],
			"participant_courses":     structure.pick(structure.courses, event.ParticipantCourseID),
			"participant_year_levels": structure.pick(structure.yearLevels, event.ParticipantYearLevelID),
			"location":                event.Location,
			"sanction":                event.Sanction,
			"is_cancelled":            event.IsCancelled,
			"status":                  event.Status,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "events": data})
}

// schoolStructureMaps - справочники внешней системы, индексированные по id.
type schoolStructureMaps struct {
	schoolYears map[uint]map[string]any
	courses     map[int64]map[string]any
	yearLevels  map[int64]map[string]any
}

func (s schoolStructureMaps) pick(source map[int64]map[string]any, ids models.IDList) []map[string]any {
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		if item, ok := source[id]; ok {
			out = append(out, item)
		}
	}
	return out
}

func fetchSchoolStructureMaps(c *gin.Context) (schoolStructureMaps, error) {
	maps := schoolStructureMaps{
		schoolYears: make(map[uint]map[string]any),
		courses:     make(map[int64]map[string]any),
		yearLevels:  make(map[int64]map[string]any),
	}

	raw, err := enrollmentClient().SchoolStructure(c.Request.Context(), nil)
	if err != nil {
		return maps, err
	}

	var structure struct {
		SchoolYears []map[string]any `json:"school_years"`
		Departments []struct {
			Course []map[string]any `json:"course"`
		} `json:"departments"`
		YearLevels []map[string]any `json:"year_levels"`
	}
	if err := json.Unmarshal(raw, &structure); err != nil {
		return maps, err
	}

	for _, sy := range structure.SchoolYears {
		if id, ok := numericID(sy["id"]); ok {
			maps.schoolYears[uint(id)] = sy
		}
	}
	for _, dep := range structure.Departments {
		for _, course := range dep.Course {
			if id, ok := numericID(course["id"]); ok {
				maps.courses[id] = course
			}
		}
	}
	for _, yl := range structure.YearLevels {
		if id, ok := numericID(yl["id"]); ok {
			maps.yearLevels[id] = yl
		}
	}
	return maps, nil
}

func numericID(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

// CreateEventHandler создает событие и рассылает приглашение участникам.
func CreateEventHandler(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "errors": err.Error()})
		return
	}
	if err := req.validateTimes(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "errors": err.Error()})
		return
	}
	if !recordExists(&models.Location{}, req.LocationID) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "errors": "location_id does not exist"})
		return
	}
	if !recordExists(&models.Sanction{}, req.SanctionID) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "errors": "sanction_id does not exist"})
		return
	}

	var event models.Event
	req.apply(&event)

	if err := config.DB.Create(&event).Error; err != nil {
		slog.Error("Ошибка создания события", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create event."})
		return
	}

	createEventNotification(&event, "New event invitation", fmt.Sprintf(
		"Heads up! There will be %s event on %s, at %s\n\nCheck your event activities for more info.",
		event.EventName,
		event.EventDate.Format("January 2, 2006"),
		locationName(event.LocationID),
	))

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Event created successfully",
		"data":    event,
	})
}

// UpdateEventHandler обновляет событие. Осмысленные изменения порождают
// уведомление; отмена события - отдельный его тип.
func UpdateEventHandler(c *gin.Context) {
	var event models.Event
	if err := config.DB.First(&event, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Event not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch event."})
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "errors": err.Error()})
		return
	}
	if err := req.validateTimes(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "errors": err.Error()})
		return
	}
	if !recordExists(&models.Location{}, req.LocationID) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "errors": "location_id does not exist"})
		return
	}
	if !recordExists(&models.Sanction{}, req.SanctionID) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "errors": "sanction_id does not exist"})
		return
	}

	wasCancelled := event.IsCancelled
	before := event

	req.apply(&event)
	if req.IsCancelled != nil {
		event.IsCancelled = *req.IsCancelled
	} else {
		event.IsCancelled = false
	}
	if req.Status != nil {
		event.Status = *req.Status
	} else {
		event.Status = true
	}

	if err := config.DB.Save(&event).Error; err != nil {
		slog.Error("Ошибка обновления события", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update event."})
		return
	}

	if eventChanged(before, event) {
		if event.IsCancelled && !wasCancelled {
			createEventNotification(&event, "Event cancelled", fmt.Sprintf(
				"Important: The event '%s' scheduled on %s at %s has been CANCELLED.",
				event.EventName,
				event.EventDate.Format("January 2, 2006"),
				locationName(event.LocationID),
			))
		} else {
			createEventNotification(&event, "Event updated", fmt.Sprintf(
				"Update: The event '%s' on %s at %s has been updated.\n\nPlease check the latest details in your event activities.",
				event.EventName,
				event.EventDate.Format("January 2, 2006"),
				locationName(event.LocationID),
			))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Event updated successfully",
		"data":    event,
	})
}

// eventChanged сравнивает поля, изменение которых требует уведомления.
func eventChanged(a, b models.Event) bool {
	strEq := func(x, y *string) bool {
		if x == nil || y == nil {
			return x == y
		}
		return *x == *y
	}
	idsEq := func(x, y models.IDList) bool {
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	}

	return a.EventName != b.EventName ||
		!a.EventDate.Equal(b.EventDate) ||
		a.LocationID != b.LocationID ||
		a.AttendanceType != b.AttendanceType ||
		!strEq(a.StartTime, b.StartTime) ||
		!strEq(a.EndTime, b.EndTime) ||
		!strEq(a.FirstStartTime, b.FirstStartTime) ||
		!strEq(a.FirstEndTime, b.FirstEndTime) ||
		!strEq(a.SecondStartTime, b.SecondStartTime) ||
		!strEq(a.SecondEndTime, b.SecondEndTime) ||
		a.AttendanceDuration != b.AttendanceDuration ||
		!idsEq(a.ParticipantCourseID, b.ParticipantCourseID) ||
		!idsEq(a.ParticipantYearLevelID, b.ParticipantYearLevelID) ||
		a.SanctionID != b.SanctionID ||
		a.IsCancelled != b.IsCancelled
}

func createEventNotification(event *models.Event, notifType, message string) {
	notification := models.Notification{
		CoursesID:      event.ParticipantCourseID,
		YearLevelsID:   event.ParticipantYearLevelID,
		NotifiableType: notifType,
		Data:           message,
	}
	if err := config.DB.Create(&notification).Error; err != nil {
		slog.Error("Ошибка создания уведомления", "error", err, "event_id", event.ID)
	}
}

func locationName(locationID uint) string {
	var location models.Location
	if err := config.DB.First(&location, locationID).Error; err != nil {
		return "Unknown Location"
	}
	return location.LocationName
}

func recordExists(model any, id uint) bool {
	var count int64
	config.DB.Model(model).Where("id = ?", id).Count(&count)
	return count > 0
}

// EventFormOptionsHandler отдает справочники для формы события: активные
// санкции, активные локации и структуру школы из внешней системы.
func EventFormOptionsHandler(c *gin.Context) {
	var sanctions []models.Sanction
	config.DB.Where("status = ?", true).Find(&sanctions)

	var locations []models.Location
	config.DB.Where("status = ?", true).Find(&locations)

	structure, err := enrollmentClient().SchoolStructure(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		structure = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"sanctions":        sanctions,
		"locations":        locations,
		"school_structure": structure,
	})
}

// MyEventsHandler возвращает активные события для курса и уровня года
// студента.
func MyEventsHandler(c *gin.Context) {
	var req struct {
		ParticipantCourseID    int64 `json:"participant_course_id" form:"participant_course_id" binding:"required"`
		ParticipantYearLevelID int64 `json:"participant_year_level_id" form:"participant_year_level_id" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "errors": err.Error()})
		return
	}

	var events []models.Event
	if err := config.DB.Preload("Location").Preload("Sanction").
		Where("status = ?", true).
		Order("event_date asc").
		Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch events."})
		return
	}

	// Совпадение по спискам участников проверяем на стороне приложения.
	matched := make([]models.Event, 0, len(events))
	for _, event := range events {
		if event.ParticipantCourseID.Contains(req.ParticipantCourseID) &&
			event.ParticipantYearLevelID.Contains(req.ParticipantYearLevelID) {
			matched = append(matched, event)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Events fetched successfully.",
		"data":    matched,
	})
}

// StudentEventsHandler возвращает события, на которые зачислены указанные
// студенты, по данным внешней системы зачислений.
func StudentEventsHandler(c *gin.Context) {
	userIDNos := c.QueryArray("user_id_no")
	if len(userIDNos) == 0 {
		if single := c.Query("user_id_no"); single != "" {
			userIDNos = []string{single}
		}
	}
	if len(userIDNos) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "user_id_no[] is required.", "data": []any{}})
		return
	}

	conditions, err := enrollmentClient().StudentEnrollment(c.Request.Context(), userIDNos)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch enrollment data.", "data": []any{}})
		return
	}
	if len(conditions) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "No enrollments found.", "data": []any{}})
		return
	}

	var events []models.Event
	if err := config.DB.Preload("Location").Preload("Sanction").
		Where("is_cancelled = ?", false).
		Where("status = ?", true).
		Order("event_date desc").
		Order("created_at desc").
		Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch events.", "data": []any{}})
		return
	}

	matched := make([]models.Event, 0, len(events))
	seen := make(map[uint]bool)
	for _, event := range events {
		if seen[event.ID] {
			continue
		}
		for _, cond := range conditions {
			if uint(cond.SchoolYearID) == event.SchoolYearID &&
				event.ParticipantCourseID.Contains(cond.CourseID) &&
				event.ParticipantYearLevelID.Contains(cond.YearLevelID) {
				matched = append(matched, event)
				seen[event.ID] = true
				break
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Events fetched successfully.",
		"data":    matched,
	})
}

// EventParticipantsHandler собирает список участников события с их
// отметками по контрольным точкам и сводными счетчиками.
func EventParticipantsHandler(c *gin.Context) {
	var event models.Event
	if err := config.DB.Preload("Location").Preload("Sanction").
		First(&event, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Event not found.", "data": nil})
		return
	}
	if event.IsCancelled || !event.Status {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Event is cancelled or inactive.", "data": nil})
		return
	}

	validCheckpoints := event.RequiredCheckpoints()

	checkpointCounts := make(map[string]gin.H, len(validCheckpoints))
	attended := make(map[string]int, len(validCheckpoints))
	absent := make(map[string]int, len(validCheckpoints))

	requestedCheckpoint := c.Query("checkpoint")
	if requestedCheckpoint != "" {
		valid := false
		for _, cp := range validCheckpoints {
			if cp == requestedCheckpoint {
				valid = true
				break
			}
		}
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": fmt.Sprintf("Invalid checkpoint. Valid options: %s", strings.Join(validCheckpoints, ", ")),
			})
			return
		}
	}

	var showAttended *bool
	if raw := c.Query("attended"); raw != "" {
		switch raw {
		case "true", "1":
			v := true
			showAttended = &v
		case "false", "0":
			v := false
			showAttended = &v
		default:
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid 'attended' filter. Use true or false."})
			return
		}
	}

	var studentIDNos []string
	config.DB.Model(&models.User{}).Where("user_role = ?", models.RoleStudent).Pluck("user_id_no", &studentIDNos)

	if len(studentIDNos) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success":           true,
			"message":           "Participants fetched successfully.",
			"event":             event,
			"participants":      []any{},
			"checkpoint_counts": checkpointCounts,
		})
		return
	}

	profiles, err := enrollmentClient().StudentProfiles(c.Request.Context(), studentIDNos)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch enrollment data.", "data": []any{}})
		return
	}

	var records []models.EventAttendance
	config.DB.Where("event_id = ?", event.ID).Find(&records)

	recordsByUser := make(map[string]map[string]models.EventAttendance)
	for _, rec := range records {
		if recordsByUser[rec.UserIDNo] == nil {
			recordsByUser[rec.UserIDNo] = make(map[string]models.EventAttendance)
		}
		recordsByUser[rec.UserIDNo][rec.Checkpoint] = rec
	}

	participants := make([]gin.H, 0, len(profiles))
	for _, profile := range profiles {
		matches := false
		for _, cond := range profile.Conditions {
			if uint(cond.SchoolYearID) == event.SchoolYearID &&
				event.ParticipantCourseID.Contains(cond.CourseID) &&
				event.ParticipantYearLevelID.Contains(cond.YearLevelID) {
				matches = true
				break
			}
		}
		if !matches {
			continue
		}

		userRecords := recordsByUser[profile.UserIDNo]

		attendance := make([]gin.H, 0, len(validCheckpoints))
		for _, cp := range validCheckpoints {
			rec, found := userRecords[cp]
			if found {
				attended[cp]++
			} else {
				absent[cp]++
			}

			entry := gin.H{
				"checkpoint":           cp,
				"attended_at":          nil,
				"location_coordinates": nil,
				"device_user_id_no":    nil,
				"device_model":         nil,
			}
			if found {
				entry["attended_at"] = rec.AttendedAt.Format("03:04:05 PM")
				entry["location_coordinates"] = rec.LocationCoordinates
				entry["device_user_id_no"] = rec.DeviceUserIDNo
				entry["device_model"] = rec.DeviceModel
			}
			attendance = append(attendance, entry)
		}

		if requestedCheckpoint != "" && showAttended != nil {
			_, hasAttended := userRecords[requestedCheckpoint]
			if hasAttended != *showAttended {
				continue
			}
		}

		participants = append(participants, gin.H{
			"user_id_no":  profile.UserIDNo,
			"first_name":  profile.FirstName,
			"last_name":   profile.LastName,
			"middle_name": profile.MiddleName,
			"attendance":  attendance,
		})
	}

	sort.Slice(participants, func(i, j int) bool {
		return participants[i]["last_name"].(string) < participants[j]["last_name"].(string)
	})

	for _, cp := range validCheckpoints {
		checkpointCounts[cp] = gin.H{"attended": attended[cp], "absent": absent[cp]}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           "Participants fetched successfully.",
		"event":             event,
		"valid_checkpoints": validCheckpoints,
		"participants":      participants,
		"checkpoint_counts": checkpointCounts,
	})
}
