package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/config"
	"github.com/emilythestrangee/paperboard/backend/internal/models"
)

func TestPostgresIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("paperboard"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	for _, driver := range []string{"pgx", "postgres"} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Default().Database
			cfg.Driver = driver
			cfg.Host = host
			cfg.Port = port.Port()

			svc, err := New(cfg, zap.NewNop())
			require.NoError(t, err)
			defer svc.Close()

			require.NoError(t, svc.Migrate(ctx))
			assert.Equal(t, "up", svc.Health()["status"])

			db := svc.GetDB().WithContext(ctx)
			u := models.User{Name: "pg-" + driver, Email: driver + "@example.com"}
			require.NoError(t, db.Create(&u).Error)

			err = db.Create(&models.User{Name: "pg-" + driver, Email: "other-" + driver + "@example.com"}).Error
			require.Error(t, err)
			assert.True(t, IsUniqueViolation(err))
		})
	}
}
