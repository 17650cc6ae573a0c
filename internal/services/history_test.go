package services

import (
	"testing"

	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=test dbname=test sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestHistoryQuery(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var records []models.GenerationRecord
		return historyQuery(tx, 7, 10).Find(&records)
	})

	assert.Contains(t, sql, `FROM "generation_records"`)
	assert.Contains(t, sql, "user_id = 7")
	assert.Contains(t, sql, "ORDER BY created_at DESC")
	assert.Contains(t, sql, "LIMIT 10")
}

func TestHistoryQueryClampsLimit(t *testing.T) {
	db := dryRunDB(t)

	for _, limit := range []int{0, -1, 500} {
		sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			var records []models.GenerationRecord
			return historyQuery(tx, 1, limit).Find(&records)
		})
		assert.Contains(t, sql, "LIMIT 50")
	}
}
