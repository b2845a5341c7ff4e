package db

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
)

func TestPostgresGetOrCreateConcurrent(t *testing.T) {
	common.SetTestLoggerNop()

	if os.Getenv(common.EnvKeyRunIntegrationTests) != "true" {
		t.Skip("Skipping integration test: RUN_INTEGRATION_TESTS environment variable not set")
	}
	dsn := os.Getenv(common.EnvKeyIOTDbDSN)
	if dsn == "" {
		t.Skip("Skipping integration test: IOT_DB_DSN not set")
	}

	instance, err := Open(UsePostgresDialector(dsn))
	require.NoError(t, err)
	defer instance.Close()

	name := "plant-" + uuid.NewString()
	const workers = 8

	var wg sync.WaitGroup
	ids := make(chan uint, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := instance.Conn.WithContext(context.Background()).Transaction(func(tx *gorm.DB) error {
				plant, _, err := GetOrCreate(tx,
					func(tx *gorm.DB) *gorm.DB { return tx.Where("name = ?", name) },
					func() *models.Plant { return &models.Plant{Name: name} },
				)
				if err != nil {
					return err
				}
				ids <- plant.ID
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	close(ids)

	var first uint
	for id := range ids {
		if first == 0 {
			first = id
		}
		assert.Equal(t, first, id)
	}

	var count int64
	require.NoError(t, instance.Conn.Model(&models.Plant{}).Where("name = ?", name).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
