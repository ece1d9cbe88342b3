package models

import "strings"

// NormalizeEquipment splits a comma-separated equipment string into
// lowercase, whitespace-trimmed tokens. Empty tokens are dropped.
func NormalizeEquipment(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.ToLower(strings.TrimSpace(part))
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// EquipmentTokenSatisfied reports whether a single required token is covered
// by the available set. The match is a bidirectional substring test: existing
// data mixes compound tokens ("smart-whiteboard") with simple ones
// ("whiteboard") on either side, so equality matching would break it.
func EquipmentTokenSatisfied(required string, available []string) bool {
	for _, have := range available {
		if strings.Contains(have, required) || strings.Contains(required, have) {
			return true
		}
	}
	return false
}

// EquipmentSatisfied reports whether every required token is covered by the
// available set under the bidirectional substring rule.
func EquipmentSatisfied(required, available []string) bool {
	for _, want := range required {
		if !EquipmentTokenSatisfied(want, available) {
			return false
		}
	}
	return true
}
