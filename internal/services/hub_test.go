package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
)

func TestHubInitialization(t *testing.T) {
	hub := NewHub(NewMetrics(), testLogger())
	assert.NotNil(t, hub)

	go hub.Run()

	// Broadcasting to a debate with no clients must not block or panic.
	hub.BroadcastToDebate("debate-1", &models.WSMessage{Type: models.MsgTypeStateUpdate})
}

func TestMetricsSnapshot(t *testing.T) {
	metrics := NewMetrics()

	metrics.IncrementConnections()
	metrics.IncrementConnections()
	metrics.DecrementConnections()
	metrics.IncrementDebates()
	metrics.IncrementMessagesReceived()
	metrics.IncrementDegradedOperations()
	metrics.IncrementCrossfireSessions()

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.ActiveConnections)
	assert.Equal(t, int64(2), snap.TotalConnections)
	assert.Equal(t, int64(1), snap.ActiveDebates)
	assert.Equal(t, int64(1), snap.MessagesReceived)
	assert.Equal(t, int64(1), snap.DegradedOperations)
	assert.Equal(t, int64(1), snap.CrossfireSessions)
	assert.Equal(t, "healthy", snap.HealthStatus)
	assert.NotEqual(t, "never", snap.LastMessageTime)
}

func TestMetricsHealthThresholds(t *testing.T) {
	metrics := NewMetrics()
	assert.Equal(t, "healthy", metrics.Snapshot().HealthStatus)

	for i := 0; i < 4001; i++ {
		metrics.IncrementConnections()
	}
	assert.Equal(t, "warning", metrics.Snapshot().HealthStatus)

	for i := 0; i < 500; i++ {
		metrics.IncrementConnections()
	}
	assert.Equal(t, "critical", metrics.Snapshot().HealthStatus)
}
