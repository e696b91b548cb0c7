package service

import (
	"context"
	"errors"
	"testing"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStatisticsService 测试统计
func TestStatisticsService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	approved := env.censusRequest(t)
	rejected := env.censusRequest(t)
	env.censusRequest(t)
	require.NoError(t, env.requests.Approve(ctx, env.adminB, approved.ID))
	require.NoError(t, env.requests.Reject(ctx, env.adminB, rejected.ID))

	stats, err := env.stats.GetStatistics(ctx, env.adminB, "")
	require.NoError(t, err)
	assert.Equal(t, env.minB.ID, stats.MinistryID)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(0), stats.Outgoing)
	assert.Equal(t, int64(3), stats.Incoming)
	assert.Equal(t, int64(1), stats.ByStatus[model.RequestStatusPending])
	assert.Equal(t, int64(1), stats.ByStatus[model.RequestStatusApproved])
	assert.Equal(t, int64(1), stats.ByStatus[model.RequestStatusRejected])
	assert.InDelta(t, 50.0, stats.ApprovalRate, 0.001)
	assert.Greater(t, stats.AverageResponseSeconds, 0.0)

	global, err := env.stats.GetStatistics(ctx, env.super, "")
	require.NoError(t, err)
	assert.Empty(t, global.MinistryID)
	assert.Equal(t, int64(3), global.Total)

	_, err = env.stats.GetStatistics(ctx, env.u2, env.minB.ID)
	assert.True(t, errors.Is(err, ErrAuthorization))

	counts, err := env.stats.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["pending"])
}
