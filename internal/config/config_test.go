package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.LockTimeout)
	assert.Equal(t, int64(1), cfg.Economy.HintCost)
	assert.Equal(t, int64(3), cfg.Economy.RevealCost)
	assert.Equal(t, int64(3), cfg.Economy.SecretAdmirerCost)
	assert.Equal(t, int64(1), cfg.Points.SendNormal)
	assert.Equal(t, int64(15), cfg.Points.SendSecretAdmirer)
	assert.Equal(t, int64(3), cfg.Points.Receive)
	assert.Equal(t, int64(5), cfg.Points.CorrectGuess)
	assert.Equal(t, 6, cfg.Exchange.RevealThreshold)
	assert.Equal(t, time.Hour, cfg.RateLimit.SendCompliment.Per)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("economy:\n  hint_cost: 2\ndatabase:\n  host: db.internal\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("DATABASE_HOST", "override.internal")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cfg.Economy.HintCost)
	assert.Equal(t, "override.internal", cfg.Database.Host)
}

func TestValidate_RejectsNonPositiveCosts(t *testing.T) {
	cfg := &Config{
		Economy:  EconomyConfig{HintCost: 0, RevealCost: 3, SecretAdmirerCost: 3},
		Exchange: ExchangeConfig{RevealThreshold: 6},
	}
	assert.Error(t, cfg.Validate())

	cfg.Economy.HintCost = 1
	assert.NoError(t, cfg.Validate())

	cfg.Exchange.RevealThreshold = 0
	assert.Error(t, cfg.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5432, Name: "n"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", d.DSN())

	d.SSLMode = "require"
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=require", d.DSN())
}
