package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func invalidRequest(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}

// termFromQuery reads the required year and half query parameters.
func termFromQuery(c *gin.Context) (int, int, error) {
	return parseTerm(c.Query("year"), c.Query("half"))
}

// termFromPath reads year and half from /terms/:year/:half routes.
func termFromPath(c *gin.Context) (int, int, error) {
	return parseTerm(c.Param("year"), c.Param("half"))
}

func parseTerm(rawYear, rawHalf string) (int, int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(rawYear))
	if err != nil {
		return 0, 0, invalidRequest(err, fmt.Sprintf("year %q must be a number", rawYear))
	}
	half, err := strconv.Atoi(strings.TrimSpace(rawHalf))
	if err != nil || (half != 1 && half != 2) {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("half %q must be 1 or 2", rawHalf))
	}
	return year, half, nil
}

// slotFromQuery reads day, start and end query parameters into a time slot.
func slotFromQuery(c *gin.Context) (models.TimeSlot, error) {
	day, err := models.ParseWeekday(c.Query("day"))
	if err != nil {
		return models.TimeSlot{}, invalidRequest(err, err.Error())
	}
	start, err := models.ParseClockTime(c.Query("start"))
	if err != nil {
		return models.TimeSlot{}, invalidRequest(err, err.Error())
	}
	end, err := models.ParseClockTime(c.Query("end"))
	if err != nil {
		return models.TimeSlot{}, invalidRequest(err, err.Error())
	}
	slot, err := models.NewTimeSlot(day, start, end)
	if err != nil {
		return models.TimeSlot{}, invalidRequest(err, err.Error())
	}
	return slot, nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
