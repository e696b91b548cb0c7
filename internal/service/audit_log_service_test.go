package service

import (
	"context"
	"errors"
	"testing"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TestAuditRecorder_OrderedIDs 审计 ID 按写入顺序排序
func TestAuditRecorder_OrderedIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, env.audit.RecordStandalone(ctx, AuditEntry{
			UserID:   env.u1.UserID,
			Action:   model.ActionUpdate,
			Table:    model.TableDataRequest,
			RecordID: "r-1",
			Details:  "step",
		}))
	}

	entries, err := env.audit.ListByRecord(ctx, model.TableDataRequest, "r-1")
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].ID, entries[i].ID)
		assert.True(t, entries[i].Timestamp.After(entries[i-1].Timestamp))
	}
}

// TestAuditRecorder_Immutable 审计记录不能修改或删除
func TestAuditRecorder_Immutable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.audit.RecordStandalone(ctx, AuditEntry{
		UserID: env.u1.UserID, Action: model.ActionCreate, Table: model.TableDataRequest, RecordID: "r-1",
	}))
	entries, err := env.audit.ListByRecord(ctx, model.TableDataRequest, "r-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	entry.Details = "tampered"
	assert.True(t, errors.Is(env.db.Save(entry).Error, model.ErrAuditLogImmutable))
	assert.True(t, errors.Is(env.db.Delete(entry).Error, model.ErrAuditLogImmutable))

	entries, err = env.audit.ListByRecord(ctx, model.TableDataRequest, "r-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Details)
}

// TestAuditRecorder_RequiresTransaction 没有事务句柄时拒绝写入
func TestAuditRecorder_RequiresTransaction(t *testing.T) {
	env := newTestEnv(t)
	err := env.audit.Record(context.Background(), nil, AuditEntry{UserID: "u", Action: model.ActionCreate, Table: model.TableDataRequest})
	assert.Error(t, err)

	err = env.db.Transaction(func(tx *gorm.DB) error {
		return env.audit.Record(context.Background(), tx, AuditEntry{Action: model.ActionCreate, Table: model.TableDataRequest})
	})
	assert.Error(t, err, "entry without user must be rejected")
}
