package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func newTestRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router, "/api/v1", h)
	return router
}

func performRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func mustSlot(day models.Weekday, start, end models.ClockTime) models.TimeSlot {
	slot, err := models.NewTimeSlot(day, start, end)
	if err != nil {
		panic(err)
	}
	return slot
}

func sampleEntry(t *testing.T) models.ScheduleEntry {
	t.Helper()
	now := time.Now()
	entry, _, err := models.NewScheduleEntry(models.NewScheduleEntryInput{
		ClassID:   "10A",
		SubjectID: "math",
		TeacherID: "T",
		TimeSlot:  mustSlot(models.Monday, models.Clock(8, 0), models.Clock(8, 50)),
		Year:      now.Year(),
		Half:      1,
		Room:      "101",
	}, now)
	require.NoError(t, err)
	return entry
}
