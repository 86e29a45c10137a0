package config

import (
	"math"
	"testing"

	"gosim/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"SIM_SEED", "SIM_TRIALS", "SIM_WORKERS", "SIM_ALPHA", "SIM_CONFIDENCE", "LOG_LEVEL", "DATABASE_URL", "METRICS_ADDR"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default().Simulation, cfg.Simulation)
	assert.False(t, cfg.Simulation.HasSeed)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIM_SEED", "1965")
	t.Setenv("SIM_TRIALS", "500")
	t.Setenv("SIM_WORKERS", "8")
	t.Setenv("SIM_ALPHA", "0.01")
	t.Setenv("SIM_CONFIDENCE", "99")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://localhost/gosim?sslmode=disable")
	t.Setenv("METRICS_ADDR", ":9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SimulationConfig{Seed: 1965, HasSeed: true, Trials: 500, Workers: 8, Alpha: 0.01, Confidence: 99}, cfg.Simulation)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"seed not a number":   {"SIM_SEED", "abc"},
		"zero trials":         {"SIM_TRIALS", "0"},
		"trials not a number": {"SIM_TRIALS", "many"},
		"negative workers":    {"SIM_WORKERS", "-2"},
		"alpha too large":     {"SIM_ALPHA", "1.5"},
		"confidence of 100":   {"SIM_CONFIDENCE", "100"},
		"unknown log level":   {"LOG_LEVEL", "loud"},
		"alpha not a number":  {"SIM_ALPHA", "five percent"},
		"alpha NaN":           {"SIM_ALPHA", "NaN"},
		"confidence NaN":      {"SIM_CONFIDENCE", "NaN"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestValidateCatchesChangesAfterLoad(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Simulation.Alpha = math.NaN()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	cfg = Default()
	cfg.Simulation.Trials = 0
	assert.Error(t, cfg.Validate())
}
