package CronJobs

import (
	"path/filepath"
	"testing"
	"time"

	"Rishui/Models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSweepDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sweep.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	Models.Migrate(db)
	return db
}

func TestSweepExpiredLicenses(t *testing.T) {
	db := newSweepDB(t)

	past := time.Now().AddDate(0, -1, 0)
	future := time.Now().AddDate(1, 0, 0)

	expired := Models.Business{BusinessName: "פג תוקף", Status: "approved", ExpirationDate: &past}
	expiredPermit := Models.Business{BusinessName: "היתר שפג", Status: "temporarily_permitted", ExpirationDate: &past}
	valid := Models.Business{BusinessName: "בתוקף", Status: "approved", ExpirationDate: &future}
	noDate := Models.Business{BusinessName: "ללא תאריך", Status: "approved"}
	closed := Models.Business{BusinessName: "סגור", Status: "closed", ExpirationDate: &past}

	for _, b := range []*Models.Business{&expired, &expiredPermit, &valid, &noDate, &closed} {
		require.NoError(t, db.Create(b).Error)
	}

	count, err := SweepExpiredLicenses(db)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	assertStatus := func(id uint, want string) {
		var b Models.Business
		require.NoError(t, db.First(&b, id).Error)
		require.Equal(t, want, b.Status)
	}
	assertStatus(expired.ID, "renewal_in_progress")
	assertStatus(expiredPermit.ID, "renewal_in_progress")
	assertStatus(valid.ID, "approved")
	assertStatus(noDate.ID, "approved")
	assertStatus(closed.ID, "closed")

	// The sweep is idempotent.
	count, err = SweepExpiredLicenses(db)
	require.NoError(t, err)
	require.Zero(t, count)
}
