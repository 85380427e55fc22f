package tools

import (
	"context"
	"time"
)

// ClockInput defines the input for the current_time tool.
type ClockInput struct {
	Format string `json:"format,omitempty" jsonschema:"description=Go time layout to format with (default: RFC3339)"`
}

// ClockOutput defines the output of the current_time tool.
type ClockOutput struct {
	Time    string `json:"time"`
	Weekday string `json:"weekday"`
}

// ClockTool reports the current date and time, for questions about
// scheduling and availability.
func ClockTool() Tool {
	return newClockTool(time.Now)
}

func newClockTool(now func() time.Time) Tool {
	return NewTool(
		"current_time",
		"Get the current date and time. Use when the candidate asks about scheduling or availability.",
		func(ctx context.Context, in ClockInput) (ClockOutput, error) {
			format := in.Format
			if format == "" {
				format = time.RFC3339
			}
			t := now()
			return ClockOutput{
				Time:    t.Format(format),
				Weekday: t.Weekday().String(),
			}, nil
		},
	)
}
