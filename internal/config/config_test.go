package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GO_ENV", "test")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("NOTIFY_DRIVER", "")
	t.Setenv("PORT", "")
}

func TestLoad_MemoryDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, NotifyDriverLog, cfg.NotifyDriver)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "order-events", cfg.KafkaTopic)
	assert.Equal(t, "orders", cfg.AMQPExchange)
}

func TestLoad_RequiresSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestLoad_PostgresNeedsPort(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_PORT", "abc")

	_, err := Load()
	assert.ErrorContains(t, err, "POSTGRES_PORT must be number")
}

func TestLoad_PostgresWithDatabaseURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/eyewear")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
}

func TestLoad_KafkaBrokers(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("NOTIFY_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "")

	_, err := Load()
	assert.EqualError(t, err, "KAFKA_BROKERS is required")

	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_UnknownDrivers(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)

	setBaseEnv(t)
	t.Setenv("NOTIFY_DRIVER", "smtp")
	_, err = Load()
	assert.Error(t, err)
}

func TestAddr_KeepsColon(t *testing.T) {
	assert.Equal(t, ":9000", Config{Port: ":9000"}.Addr())
}
