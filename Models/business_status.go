package Models

import (
	"strings"

	"golang.org/x/exp/slices"
)

// Canonical business lifecycle status codes. All legacy and free-text values
// are normalized into one of these before use.
var CanonicalStatusCodes = []string{
	"application_submitted",
	"pending_review",
	"renewal_in_progress",
	"approved",
	"temporarily_permitted",
	"rejected",
	"closed",
}

// StatusLabels maps canonical codes to the Hebrew labels shown to users.
var StatusLabels = map[string]string{
	"application_submitted": "הוגשה בקשה",
	"pending_review":        "בטיפול",
	"renewal_in_progress":   "בתהליך חידוש",
	"approved":              "רישיון בתוקף",
	"temporarily_permitted": "היתר זמני",
	"rejected":              "נדחה",
	"closed":                "סגור",
}

// legacyToCanonical maps legacy English codes and Hebrew source values onto
// canonical codes. Hebrew entries cover the values found in imported
// municipal files.
var legacyToCanonical = map[string]string{
	"in_process":            "pending_review",
	"active":                "approved",
	"expired":               "renewal_in_progress",
	"revoked":               "rejected",
	"closed":                "closed",
	"application_submitted": "application_submitted",

	"פעיל":          "approved",
	"רישיון":        "approved",
	"רישיון בתוקף":  "approved",
	"רישיון זמני":   "temporarily_permitted",
	"רישוין תקופתי": "approved",
	"היתר זמני":     "temporarily_permitted",
	"בטיפול":        "pending_review",
	"בהמתנה":        "pending_review",
	"בתהליך חידוש":  "renewal_in_progress",
	"חידוש":         "renewal_in_progress",
	"נדחה":          "rejected",
	"סגור":          "closed",
	"לא הוגשה בקשה": "application_submitted",
	"בקשה מקוונת":   "application_submitted",
	"לידיעה":        "pending_review",
	"לצמיתות":       "approved",
	"תיק פיקוח":     "pending_review",
}

// NormalizeBusinessStatus maps a free-text status onto a canonical code.
// Returns "" when the value cannot be normalized.
func NormalizeBusinessStatus(status string) string {
	trimmed := strings.TrimSpace(status)
	if trimmed == "" {
		return ""
	}

	if slices.Contains(CanonicalStatusCodes, trimmed) {
		return trimmed
	}

	if canonical, ok := legacyToCanonical[trimmed]; ok {
		return canonical
	}

	// Legacy files sometimes append qualifiers to a known value, so fall back
	// to a substring match.
	for key, canonical := range legacyToCanonical {
		if strings.Contains(trimmed, key) {
			return canonical
		}
	}

	return ""
}

// BusinessStatusLabel resolves the display label for a canonical code.
func BusinessStatusLabel(statusCode string) string {
	if label, ok := StatusLabels[statusCode]; ok {
		return label
	}
	return statusCode
}
