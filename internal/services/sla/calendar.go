// Package sla computes business-hours-aware ticket deadlines from category
// SLA policy.
package sla

import (
	"fmt"
	"os"
	"time"

	"github.com/rickar/cal/v2"
	"gopkg.in/yaml.v3"

	"github.com/campusdesk-io/campusdesk/internal/config"
)

// Clock adds business time to timestamps. It is pure once constructed, so
// deadline computation can be unit-tested against fixed calendars.
type Clock struct {
	calendar        *cal.BusinessCalendar
	twentyFourSeven bool
}

// CalendarFile is the on-disk calendar document format. Working hours map
// weekday abbreviations to the list of working hours; an empty list marks a
// non-working day.
type CalendarFile struct {
	WorkingHours map[string][]int       `yaml:"working_hours"`
	Holidays     []config.HolidayConfig `yaml:"holidays"`
}

var dayNames = map[string]time.Weekday{
	"Mon": time.Monday,
	"Tue": time.Tuesday,
	"Wed": time.Wednesday,
	"Thu": time.Thursday,
	"Fri": time.Friday,
	"Sat": time.Saturday,
	"Sun": time.Sunday,
}

// NewClock builds a clock from configuration. A calendar file, when set,
// overrides the inline working hours.
func NewClock(cfg config.SLAConfig) (*Clock, error) {
	if cfg.TwentyFourSeven {
		return &Clock{twentyFourSeven: true}, nil
	}

	workingHours := cfg.WorkingHours
	holidays := cfg.Holidays

	if cfg.CalendarFile != "" {
		doc, err := loadCalendarFile(cfg.CalendarFile)
		if err != nil {
			return nil, err
		}
		workingHours = doc.WorkingHours
		holidays = doc.Holidays
	}

	if len(workingHours) == 0 {
		// Default institutional hours: Mon-Fri 9-18.
		workingHours = map[string][]int{
			"Mon": {9, 10, 11, 12, 13, 14, 15, 16, 17},
			"Tue": {9, 10, 11, 12, 13, 14, 15, 16, 17},
			"Wed": {9, 10, 11, 12, 13, 14, 15, 16, 17},
			"Thu": {9, 10, 11, 12, 13, 14, 15, 16, 17},
			"Fri": {9, 10, 11, 12, 13, 14, 15, 16, 17},
			"Sat": {},
			"Sun": {},
		}
	}

	c := cal.NewBusinessCalendar()
	if err := applyWorkingHours(workingHours, c); err != nil {
		return nil, err
	}
	applyHolidays(holidays, c)

	return &Clock{calendar: c}, nil
}

func loadCalendarFile(path string) (*CalendarFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar file: %w", err)
	}

	var doc CalendarFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse calendar file: %w", err)
	}
	return &doc, nil
}

// applyWorkingHours configures workdays and the contiguous work-hours range.
func applyWorkingHours(hours map[string][]int, c *cal.BusinessCalendar) error {
	minHour, maxHour := 24, -1

	for dayName, hourList := range hours {
		weekday, ok := dayNames[dayName]
		if !ok {
			return fmt.Errorf("unknown weekday %q in working hours", dayName)
		}

		if len(hourList) == 0 {
			c.SetWorkday(weekday, false)
			continue
		}

		c.SetWorkday(weekday, true)
		for _, h := range hourList {
			if h < 0 || h > 23 {
				return fmt.Errorf("working hour %d out of range for %s", h, dayName)
			}
			if h < minHour {
				minHour = h
			}
			if h > maxHour {
				maxHour = h
			}
		}
	}

	if minHour <= maxHour {
		start := time.Duration(minHour) * time.Hour
		end := time.Duration(maxHour+1) * time.Hour // end of the last working hour
		c.SetWorkHours(start, end)
	}

	return nil
}

func applyHolidays(holidays []config.HolidayConfig, c *cal.BusinessCalendar) {
	for _, h := range holidays {
		if h.Month < 1 || h.Month > 12 || h.Day < 1 || h.Day > 31 {
			continue
		}
		holiday := &cal.Holiday{
			Name:  h.Name,
			Type:  cal.ObservancePublic,
			Month: time.Month(h.Month),
			Day:   h.Day,
			Func:  cal.CalcDayOfMonth,
		}
		if h.Year != 0 {
			holiday.StartYear = h.Year
			holiday.EndYear = h.Year
		}
		c.AddHoliday(holiday)
	}
}

// ComputeDueAt adds slaHours of business time to start, skipping every
// configured non-business window. slaHours <= 0 returns start unchanged.
func (c *Clock) ComputeDueAt(start time.Time, slaHours int) time.Time {
	if slaHours <= 0 {
		return start
	}

	d := time.Duration(slaHours) * time.Hour
	if c.twentyFourSeven || c.calendar == nil {
		return start.Add(d)
	}
	return c.calendar.AddWorkHours(start, d)
}

// IsBusinessTime reports whether t falls within working hours.
func (c *Clock) IsBusinessTime(t time.Time) bool {
	if c.twentyFourSeven || c.calendar == nil {
		return true
	}
	return c.calendar.IsWorkTime(t)
}
