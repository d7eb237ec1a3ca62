package main

import (
	"fmt"
	"regexp"
	"strings"
)

// validateSymbol validates a stock/crypto ticker format.
func validateSymbol(symbol string) error {
	symbolRegex := regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !symbolRegex.MatchString(symbol) {
		return fmt.Errorf("symbol must be 1-10 uppercase alphanumeric characters")
	}
	return nil
}

// validateTimeframe validates the timeframe parameter.
func validateTimeframe(timeframe string) error {
	validTimeframes := map[string]bool{
		"1min": true, "5min": true, "15min": true, "30min": true,
		"1hour": true, "4hour": true, "1day": true, "1week": true,
	}
	if !validTimeframes[timeframe] {
		return fmt.Errorf("invalid timeframe: %s (valid: 1min, 5min, 15min, 30min, 1hour, 4hour, 1day, 1week)", timeframe)
	}
	return nil
}

// validateOutputFormat validates the --format flag.
func validateOutputFormat(format string) error {
	validFormats := map[string]bool{"json": true, "table": true}
	format = strings.ToLower(format)
	if !validFormats[format] {
		return fmt.Errorf("invalid format: %s (valid: json, table)", format)
	}
	return nil
}
