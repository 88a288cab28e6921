package db

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-dwh/internal/config"
	"github.com/pgEdge/pgedge-dwh/pkg/version"
)

func TestConnString(t *testing.T) {
	cluster := config.ClusterConfig{
		Host:     "dwh.abc123.us-west-2.redshift.amazonaws.com",
		DBName:   "dwh",
		User:     "dwhuser",
		Password: "p@ss:w/rd?&'",
		Port:     5439,
		SSLMode:  "require",
	}

	cfg, err := pgx.ParseConfig(ConnString(cluster))
	require.NoError(t, err)

	assert.Equal(t, cluster.Host, cfg.Host)
	assert.Equal(t, uint16(5439), cfg.Port)
	assert.Equal(t, "dwh", cfg.Database)
	assert.Equal(t, "dwhuser", cfg.User)
	assert.Equal(t, cluster.Password, cfg.Password)
	assert.NotNil(t, cfg.TLSConfig, "sslmode=require configures TLS")
	assert.Equal(t, version.ApplicationName(), cfg.RuntimeParams["application_name"])
}

func TestConnStringWithoutSSLMode(t *testing.T) {
	cs := ConnString(config.ClusterConfig{Host: "localhost", DBName: "dwh", User: "postgres", Port: 5432})
	assert.NotContains(t, cs, "sslmode")
	assert.Contains(t, cs, "connect_timeout=30")
}
