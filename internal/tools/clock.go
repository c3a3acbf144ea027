// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"time"
	_ "time/tzdata"
)

// CurrentTimeExecutor reports the current time in a timezone.
type CurrentTimeExecutor struct {
	// Now is the clock; nil means time.Now
	Now func() time.Time
}

// TimeResult is the payload of current_time.
type TimeResult struct {
	Timezone string `json:"timezone"`
	Time     string `json:"time"`
	Weekday  string `json:"weekday"`
	Unix     int64  `json:"unix"`
}

// Execute implements ToolExecutor.
func (e *CurrentTimeExecutor) Execute(ctx context.Context, params map[string]interface{}) (Result, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	tz := getStringParam(params, "timezone", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Result{Success: false, Error: "unknown timezone " + tz}, nil
	}

	t := now().In(loc)
	return Result{
		Success: true,
		Data: TimeResult{
			Timezone: loc.String(),
			Time:     t.Format(time.RFC3339),
			Weekday:  t.Weekday().String(),
			Unix:     t.Unix(),
		},
	}, nil
}

// CurrentTimeTool is the current_time tool definition.
func CurrentTimeTool() *Tool {
	return &Tool{
		Name:        "current_time",
		Description: "Get the current date and time. Use it for questions about today, now, or relative dates.",
		Schema: Schema{Parameters: []Parameter{
			{
				Name:        "timezone",
				Type:        "string",
				Description: "IANA timezone such as Europe/Paris",
				Default:     "UTC",
			},
		}},
		Executor: &CurrentTimeExecutor{},
	}
}
