package handlers

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmcallister/volunteer-scheduler-api/pkg/auth"
	"github.com/dmcallister/volunteer-scheduler-api/pkg/calendar"
	"github.com/dmcallister/volunteer-scheduler-api/pkg/database"
	"github.com/dmcallister/volunteer-scheduler-api/pkg/models"
	"github.com/dmcallister/volunteer-scheduler-api/pkg/roster"
	"github.com/dmcallister/volunteer-scheduler-api/pkg/scheduler"
)

//go:embed static/*
var staticEmbed embed.FS

// MaxRangeMonths bounds the schedule horizon; the signup form offers 1-3.
const MaxRangeMonths = 3

// Handler contains dependencies for the route handlers.
type Handler struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

// AuthMiddleware verifies the JWT token for admin routes.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC-signed API key for scheduler routes.
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			c.Abort()
			return
		}
		key = strings.TrimPrefix(key, "Bearer ")

		owner, err := auth.VerifyAPIKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			c.Abort()
			return
		}

		// Fetch or create the key record so usage can be tracked.
		var apiKey database.APIKey
		h.DB.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey, database.APIKey{
			Key:       key,
			Name:      owner,
			RateLimit: 10000,
		})

		c.Set("apiKey", &apiKey)
		c.Set("owner", owner)
		c.Next()
	}
}

// buildSchedule runs one full scheduling pass: normalize the roster,
// generate the Sunday calendar, fill every slot, then summarize. Each call
// gets its own engine and quota tracker, so concurrent requests never
// share state.
func buildSchedule(rows []models.RawVolunteer, startDate string, rangeMonths int) (*models.ScheduleResponse, error) {
	start := time.Now()
	if startDate != "" {
		parsed, err := time.Parse(calendar.DateKey, startDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", startDate)
		}
		start = parsed
	}
	if rangeMonths < 1 || rangeMonths > MaxRangeMonths {
		return nil, fmt.Errorf("range_months must be between 1 and %d", MaxRangeMonths)
	}

	vols := roster.FromRaw(rows)
	occurrences := calendar.Sundays(start, rangeMonths)
	months := calendar.Months(occurrences)

	engine := scheduler.NewEngine(vols, scheduler.DefaultOptions())
	schedule := engine.Run(occurrences)
	summary, compliance := engine.Summarize(months)

	return &models.ScheduleResponse{
		RunID:         uuid.NewString(),
		StartDate:     start.Format(calendar.DateKey),
		RangeMonths:   rangeMonths,
		Months:        months,
		Assignments:   schedule,
		ByMonth:       scheduler.GroupByMonth(schedule),
		Summary:       summary,
		Compliance:    compliance,
		UnfilledSlots: scheduler.CountUnfilled(schedule),
	}, nil
}

// ScheduleJSON handles the JSON-based scheduling request.
func (h *Handler) ScheduleJSON(c *gin.Context) {
	var input models.ScheduleRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := buildSchedule(input.Volunteers, input.StartDate, input.RangeMonths)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.Log.Info().
		Str("run_id", resp.RunID).
		Int("volunteers", len(input.Volunteers)).
		Int("months", resp.RangeMonths).
		Int("unfilled", resp.UnfilledSlots).
		Msg("schedule generated")

	h.RecordUsage(c, len(input.Volunteers), len(resp.Assignments), resp.UnfilledSlots)

	c.JSON(http.StatusOK, resp)
}

// ScheduleCSV handles CSV signup-sheet uploads. The response carries the
// schedule as CSV text plus the compliance report.
func (h *Handler) ScheduleCSV(c *gin.Context) {
	volsFile, _ := c.FormFile("volunteers_file")
	if volsFile == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volunteers_file is required"})
		return
	}

	f, err := volsFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open volunteers file"})
		return
	}
	defer f.Close()

	rows, err := roster.LoadCSV(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse volunteers file"})
		return
	}

	rangeMonths := 1
	if v := c.PostForm("range_months"); v != "" {
		rangeMonths, err = strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "range_months must be an integer"})
			return
		}
	}

	resp, err := buildSchedule(rows, c.PostForm("start_date"), rangeMonths)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.RecordUsage(c, len(rows), len(resp.Assignments), resp.UnfilledSlots)

	c.JSON(http.StatusOK, gin.H{
		"run_id":         resp.RunID,
		"csv":            WriteScheduleCSV(resp.Assignments),
		"months":         resp.Months,
		"compliance":     resp.Compliance,
		"unfilled_slots": resp.UnfilledSlots,
	})
}

// WriteScheduleCSV renders schedule rows as CSV text with the column
// layout volunteers already know from the exported spreadsheets.
func WriteScheduleCSV(records []models.AssignmentRecord) string {
	var out strings.Builder
	writer := csv.NewWriter(&out)
	writer.Write([]string{"Date", "Week", "Service Time", "Volunteer Slot", "Volunteer"})
	for _, rec := range records {
		writer.Write([]string{
			rec.Date,
			rec.Week,
			rec.ServiceTime,
			fmt.Sprintf("Slot %d", rec.Slot),
			rec.Volunteer,
		})
	}
	writer.Flush()
	return out.String()
}

// RecordUsage upserts the per-key daily usage row.
func (h *Handler) RecordUsage(c *gin.Context, volunteerCount, occurrenceSlots, unfilled int) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	today := time.Now().Format("2006-01-02")

	// OnConflict gives a single-query upsert on both postgres and sqlite.
	h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":     gorm.Expr("request_count + ?", 1),
			"total_volunteers":  gorm.Expr("total_volunteers + ?", volunteerCount),
			"total_occurrences": gorm.Expr("total_occurrences + ?", occurrenceSlots),
			"unfilled_slots":    gorm.Expr("unfilled_slots + ?", unfilled),
		}),
	}).Create(&database.ScheduleUsage{
		KeyID:            apiKey.ID,
		Date:             today,
		RequestCount:     1,
		TotalVolunteers:  volunteerCount,
		TotalOccurrences: occurrenceSlots,
		UnfilledSlots:    unfilled,
	})
}

// Login handles admin login.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user database.AdminUser
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey creates a new API key.
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		RateLimit int    `json:"rate_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.RateLimit == 0 {
		req.RateLimit = 10000
	}

	key := auth.GenerateAPIKey(req.Name)

	preview := "****"
	if len(key) > 8 {
		preview = key[:8] + "..." + key[len(key)-4:]
	}

	apiKey := database.APIKey{
		Key:        key,
		Name:       req.Name,
		KeyPreview: preview,
		RateLimit:  req.RateLimit,
	}

	if err := h.DB.Create(&apiKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create key record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all API keys.
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	h.DB.Find(&keys)
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes an API key.
func (h *Handler) RevokeKey(c *gin.Context) {
	id := c.Param("id")
	if err := h.DB.Delete(&database.APIKey{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// UpdateKeyLimit updates the rate limit for a key.
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}

	// Try JSON first, then form/query.
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit is required"})
			return
		}
	}

	if req.RateLimit == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rate limit"})
		return
	}

	if err := h.DB.Model(&database.APIKey{}).Where("id = ?", id).Update("rate_limit", req.RateLimit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update key limit"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rate limit updated successfully"})
}

// GetUsage returns usage stats for a key.
func (h *Handler) GetUsage(c *gin.Context) {
	id := c.Param("id")
	var usage []database.ScheduleUsage
	h.DB.Where("key_id = ?", id).Order("date desc").Limit(30).Find(&usage)
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

// AdminInterface serves the admin web interface from embedded files.
func (h *Handler) AdminInterface(c *gin.Context) {
	_ = auth.EnsureAdminExists(h.DB)

	data, err := staticEmbed.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "static/index.html not found in embedded FS"})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

// GetStaticFS returns the embedded filesystem for static assets.
func (h *Handler) GetStaticFS() http.FileSystem {
	sub, err := fs.Sub(staticEmbed, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
