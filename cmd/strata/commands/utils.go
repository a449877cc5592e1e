// ABOUTME: Shared utility functions for CLI commands
// ABOUTME: Input parsing and small formatting helpers
package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"strata/internal/models"
)

// truncate shortens a string to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// validatePositiveInt returns an error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}

// readFragments parses fragments from a reader. A leading '[' selects the
// JSON array form ([{id, text, metadata}...]); otherwise each non-empty
// line becomes a fragment with a sequential id.
func readFragments(r io.Reader) ([]models.Fragment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("no fragments provided")
	}

	if strings.HasPrefix(trimmed, "[") {
		var fragments []models.Fragment
		if err := json.Unmarshal([]byte(trimmed), &fragments); err != nil {
			return nil, fmt.Errorf("parsing JSON fragments: %w", err)
		}
		return fragments, nil
	}

	var fragments []models.Fragment
	scanner := bufio.NewScanner(strings.NewReader(trimmed))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	id := int64(0)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fragments = append(fragments, models.Fragment{ID: id, Text: line})
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return fragments, nil
}
