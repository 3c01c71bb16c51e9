package logger

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log, err := New(Config{Level: "debug", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "balancer.log")
	log, err := New(Config{Level: "info", Output: "file", File: path})
	require.NoError(t, err)

	log.Info("started")
	assert.FileExists(t, path)
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	base := Discard()
	child := base.WithField("server_id", "s1")

	assert.Empty(t, base.fields)
	assert.Equal(t, "s1", child.fields["server_id"])

	grandchild := child.WithFields(logrus.Fields{"attempt": 2})
	assert.Equal(t, "s1", grandchild.fields["server_id"])
	assert.Equal(t, 2, grandchild.fields["attempt"])
	assert.Len(t, child.fields, 1)
}

func TestComponentLoggers(t *testing.T) {
	base := Discard()

	assert.Equal(t, "registry", base.RegistryLogger().fields["component"])
	assert.Equal(t, "health_monitor", base.HealthMonitorLogger().fields["component"])
	assert.Equal(t, "dispatcher", base.DispatcherLogger().fields["component"])
	assert.Equal(t, "circuit_breaker", base.BreakerLogger().fields["component"])
	assert.Equal(t, "session", base.SessionLogger().fields["component"])
	assert.Equal(t, "admin", base.AdminLogger().fields["component"])
	assert.Equal(t, "s1", base.ServerLogger("s1").fields["server_id"])
}
