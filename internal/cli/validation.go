package cli

import (
	"fmt"
	"strings"
)

// validateCronExpression validates cron expression input
func validateCronExpression(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("cron expression is required")
	}

	// Basic validation - check if it has 5 parts
	parts := strings.Fields(input)
	if len(parts) != 5 {
		return "", fmt.Errorf("invalid cron expression: %s (must have 5 parts)", input)
	}

	return input, nil
}

// validateBaseURL validates base URL input
func validateBaseURL(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "http://localhost:11434", nil // Default for Ollama
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return "", fmt.Errorf("base URL must start with http:// or https://")
	}
	return input, nil
}

// maskSensitiveData masks sensitive data for display
func maskSensitiveData(data string, maskChar string) string {
	if data == "" {
		return "(not set)"
	}
	if len(data) <= 8 {
		return strings.Repeat(maskChar, 3)
	}
	return data[:4] + "..." + data[len(data)-4:]
}
