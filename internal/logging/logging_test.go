package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		logger, err := New(env)
		require.NoError(t, err, env)
		assert.NotNil(t, logger)
	}
}

func TestGormWriterForwardsToZap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	w := gormWriter{sugar: zap.New(core).Sugar()}

	w.Printf("slow query %s took %d", "SELECT 1", 42)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "slow query SELECT 1 took 42", logs.All()[0].Message)
}

func TestGormLoggerLevel(t *testing.T) {
	l := GormLogger(zap.NewNop(), gormlogger.Warn)
	assert.NotNil(t, l.LogMode(gormlogger.Silent))
}
