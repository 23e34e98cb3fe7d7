package agcdkevents

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// Schedule is a scheduler expression for a rule, immutable once built.
type Schedule struct {
	expression string
}

// ExpressionString returns the schedule in the scheduler expression syntax,
// e.g. "rate(10 minutes)" or "cron(0 18 ? * MON-FRI *)".
func (s *Schedule) ExpressionString() string {
	return s.expression
}

// ScheduleExpression wraps an already-formatted scheduler expression.
func ScheduleExpression(expression string) *Schedule {
	return &Schedule{expression: expression}
}

// ScheduleRate builds a rate expression from a duration. The duration must
// be a positive whole number of minutes; the largest unit that divides it
// evenly (days, hours or minutes) is used.
func ScheduleRate(d time.Duration) *Schedule {
	if d <= 0 || d%time.Minute != 0 {
		panic(fmt.Sprintf("schedule rate must be a positive whole number of minutes, got %s", d))
	}

	unit := "minute"
	amount := int64(d / time.Minute)
	switch {
	case d%(24*time.Hour) == 0:
		unit = "day"
		amount = int64(d / (24 * time.Hour))
	case d%time.Hour == 0:
		unit = "hour"
		amount = int64(d / time.Hour)
	}

	if amount != 1 {
		unit += "s"
	}

	return &Schedule{expression: fmt.Sprintf("rate(%d %s)", amount, unit)}
}

// CronOptions configures the fields of a cron expression. Empty fields
// default to every value, except WeekDay which defaults to any day. Day and
// WeekDay are mutually exclusive.
type CronOptions struct {
	Minute  string
	Hour    string
	Day     string
	Month   string
	WeekDay string
	Year    string
}

// ScheduleCron builds a cron expression from the given options.
func ScheduleCron(opts CronOptions) (*Schedule, error) {
	if opts.Day != "" && opts.WeekDay != "" {
		return nil, errors.New("cannot supply both 'Day' and 'WeekDay' in a cron schedule")
	}

	minute := defaultField(opts.Minute, "*")
	hour := defaultField(opts.Hour, "*")
	month := defaultField(opts.Month, "*")
	year := defaultField(opts.Year, "*")

	// The scheduler requires exactly one of day and week-day to be a
	// question mark.
	day := defaultField(opts.Day, "*")
	weekDay := defaultField(opts.WeekDay, "?")
	if opts.WeekDay != "" {
		day = "?"
	}

	return &Schedule{expression: fmt.Sprintf(
		"cron(%s %s %s %s %s %s)", minute, hour, day, month, weekDay, year,
	)}, nil
}

func defaultField(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
