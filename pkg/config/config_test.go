package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 2400, cfg.Scheduler.TeacherCeilingMinutes)
	assert.False(t, cfg.Scheduler.ClassConflicts)
	assert.Equal(t, DefaultStandardPeriods, cfg.Scheduler.StandardPeriods)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.AuditCacheTTL)
	assert.Equal(t, "sma_timetable", cfg.Database.Name)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SCHEDULER_TEACHER_CEILING_MINUTES", 1800)
	v.Set("SCHEDULER_CLASS_CONFLICTS", true)
	v.Set("SCHEDULER_STANDARD_PERIODS", "08:00-08:50")
	v.Set("SCHEDULER_AUDIT_CACHE_TTL", "not-a-duration")
	v.Set("SCHEDULER_ROOMS", " 101 , ,LAB-2")

	cfg := fromViper(v)
	assert.Equal(t, 1800, cfg.Scheduler.TeacherCeilingMinutes)
	assert.True(t, cfg.Scheduler.ClassConflicts)
	assert.Equal(t, "08:00-08:50", cfg.Scheduler.StandardPeriods)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.AuditCacheTTL)
	assert.Equal(t, []string{"101", "LAB-2"}, cfg.Scheduler.Rooms)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"101", "LAB-2"}, splitAndTrim(" 101 , ,LAB-2"))
}

func TestFromViperRejectsNonPositiveCeiling(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SCHEDULER_TEACHER_CEILING_MINUTES", 0)

	assert.Equal(t, 2400, fromViper(v).Scheduler.TeacherCeilingMinutes)
}
