package Models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeBusinessStatusCanonicalPassthrough(t *testing.T) {
	for _, code := range CanonicalStatusCodes {
		require.Equal(t, code, NormalizeBusinessStatus(code))
	}
}

func TestNormalizeBusinessStatusLegacyEnglish(t *testing.T) {
	require.Equal(t, "pending_review", NormalizeBusinessStatus("in_process"))
	require.Equal(t, "approved", NormalizeBusinessStatus("active"))
	require.Equal(t, "renewal_in_progress", NormalizeBusinessStatus("expired"))
	require.Equal(t, "rejected", NormalizeBusinessStatus("revoked"))
}

func TestNormalizeBusinessStatusHebrewValues(t *testing.T) {
	require.Equal(t, "approved", NormalizeBusinessStatus("רישיון בתוקף"))
	require.Equal(t, "temporarily_permitted", NormalizeBusinessStatus("היתר זמני"))
	require.Equal(t, "pending_review", NormalizeBusinessStatus("בטיפול"))
	require.Equal(t, "closed", NormalizeBusinessStatus("סגור"))
	require.Equal(t, "application_submitted", NormalizeBusinessStatus("לא הוגשה בקשה"))
}

func TestNormalizeBusinessStatusTrimsAndFallsBackToSubstring(t *testing.T) {
	require.Equal(t, "approved", NormalizeBusinessStatus("  פעיל  "))
	// A qualifier appended by the legacy export still resolves.
	require.Equal(t, "closed", NormalizeBusinessStatus("סגור - לבקשת הבעלים"))
}

func TestNormalizeBusinessStatusUnknown(t *testing.T) {
	require.Equal(t, "", NormalizeBusinessStatus(""))
	require.Equal(t, "", NormalizeBusinessStatus("   "))
	require.Equal(t, "", NormalizeBusinessStatus("something else"))
}

func TestBusinessStatusLabel(t *testing.T) {
	require.Equal(t, "רישיון בתוקף", BusinessStatusLabel("approved"))
	require.Equal(t, "הוגשה בקשה", BusinessStatusLabel("application_submitted"))
	// Unknown codes fall back to the raw value.
	require.Equal(t, "whatever", BusinessStatusLabel("whatever"))
}
