package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmcallister/volunteer-scheduler-api/pkg/calendar"
	"github.com/dmcallister/volunteer-scheduler-api/pkg/models"
	"github.com/dmcallister/volunteer-scheduler-api/pkg/roster"
)

// ValidateInput checks a scheduling request without running it. Empty
// availability on a volunteer is reported as a stat, not an error; such
// a volunteer simply never becomes eligible.
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.ScheduleRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if len(input.Volunteers) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": "At least one volunteer is required",
		})
		return
	}

	if input.StartDate != "" {
		if _, err := time.Parse(calendar.DateKey, input.StartDate); err != nil {
			c.JSON(http.StatusOK, gin.H{
				"valid": false,
				"error": "start_date must be formatted YYYY-MM-DD",
			})
			return
		}
	}

	if input.RangeMonths < 1 || input.RangeMonths > MaxRangeMonths {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": "range_months must be 1, 2, or 3",
		})
		return
	}

	vols := roster.FromRaw(input.Volunteers)
	noAvailability := 0
	for _, v := range vols {
		if len(v.Weeks) == 0 || len(v.Times) == 0 {
			noAvailability++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"volunteer_count":              len(vols),
			"dropped_rows":                 len(input.Volunteers) - len(vols),
			"volunteers_never_schedulable": noAvailability,
		},
	})
}
