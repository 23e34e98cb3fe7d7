package agcdkevents

import (
	"testing"
	"time"
)

func TestScheduleRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"single minute", time.Minute, "rate(1 minute)"},
		{"multiple minutes", 10 * time.Minute, "rate(10 minutes)"},
		{"minutes not dividing into hours", 90 * time.Minute, "rate(90 minutes)"},
		{"single hour", time.Hour, "rate(1 hour)"},
		{"multiple hours", 2 * time.Hour, "rate(2 hours)"},
		{"single day", 24 * time.Hour, "rate(1 day)"},
		{"multiple days", 48 * time.Hour, "rate(2 days)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ScheduleRate(tt.duration).ExpressionString()
			if got != tt.expected {
				t.Errorf("ScheduleRate(%s) = %q, want %q", tt.duration, got, tt.expected)
			}
		})
	}
}

func TestScheduleRateInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		duration time.Duration
	}{
		{"zero", 0},
		{"negative", -time.Minute},
		{"sub-minute", 30 * time.Second},
		{"fractional minutes", 90 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if recover() == nil {
					t.Errorf("ScheduleRate(%s) should panic", tt.duration)
				}
			}()
			ScheduleRate(tt.duration)
		})
	}
}

func TestScheduleCron(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     CronOptions
		expected string
		wantErr  bool
	}{
		{
			name:     "all defaults",
			opts:     CronOptions{},
			expected: "cron(* * * * ? *)",
		},
		{
			name:     "week day clears day of month",
			opts:     CronOptions{Minute: "0", Hour: "18", WeekDay: "MON-FRI"},
			expected: "cron(0 18 ? * MON-FRI *)",
		},
		{
			name:     "day of month",
			opts:     CronOptions{Day: "1", Month: "6"},
			expected: "cron(* * 1 6 ? *)",
		},
		{
			name:     "explicit year",
			opts:     CronOptions{Minute: "30", Hour: "4", Year: "2030"},
			expected: "cron(30 4 * * ? 2030)",
		},
		{
			name:    "day and week day conflict",
			opts:    CronOptions{Day: "1", WeekDay: "MON"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			schedule, err := ScheduleCron(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ScheduleCron(%+v) error = %v, wantErr %v", tt.opts, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := schedule.ExpressionString(); got != tt.expected {
				t.Errorf("ScheduleCron(%+v) = %q, want %q", tt.opts, got, tt.expected)
			}
		})
	}
}

func TestScheduleExpression(t *testing.T) {
	t.Parallel()

	expr := "rate(5 minutes)"
	if got := ScheduleExpression(expr).ExpressionString(); got != expr {
		t.Errorf("ScheduleExpression(%q) = %q", expr, got)
	}
}
