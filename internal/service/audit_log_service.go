package service

import (
	"context"
	"fmt"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/repository"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// AuditEntry 一条待写入的审计记录
type AuditEntry struct {
	UserID   string
	Action   string
	Table    string
	RecordID string
	Details  string
}

// AuditRecorder 审计记录器
// Record 必须在调用方的事务中写入,写入失败时整个操作回滚
type AuditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry AuditEntry) error
	RecordStandalone(ctx context.Context, entry AuditEntry) error
	ListByRecord(ctx context.Context, table string, recordID string) ([]*model.AuditLogModel, error)
	ListByUser(ctx context.Context, userID string) ([]*model.AuditLogModel, error)
}

// RequestMeta 传输层元数据,随审计记录保存
type RequestMeta struct {
	RequestID string
	IP        string
	UserAgent string
}

type requestMetaKey struct{}

// WithRequestMeta 将传输层元数据放入 context
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext 从 context 读取传输层元数据
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// auditRecorder 审计记录器实现
type auditRecorder struct {
	db    *gorm.DB
	clock Clock

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewAuditRecorder 创建审计记录器
func NewAuditRecorder(db *gorm.DB, clock Clock) AuditRecorder {
	if clock == nil {
		clock = SystemClock{}
	}
	return &auditRecorder{
		db:      db,
		clock:   clock,
		entropy: ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0),
	}
}

// newID 生成按时间排序的 ULID
func (r *auditRecorder) newID(at time.Time) string {
	r.entropyMu.Lock()
	defer r.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), r.entropy).String()
}

// Record 在给定事务中追加审计记录
func (r *auditRecorder) Record(ctx context.Context, tx *gorm.DB, entry AuditEntry) error {
	if tx == nil {
		return fmt.Errorf("audit record requires a transaction")
	}

	now := r.clock.Now()
	meta := RequestMetaFromContext(ctx)
	log := &model.AuditLogModel{
		ID:            r.newID(now),
		UserID:        entry.UserID,
		Action:        entry.Action,
		TableAffected: entry.Table,
		RecordID:      entry.RecordID,
		Details:       entry.Details,
		RequestID:     meta.RequestID,
		IP:            meta.IP,
		UserAgent:     meta.UserAgent,
		Timestamp:     now,
	}
	if err := log.Validate(); err != nil {
		return fmt.Errorf("invalid audit entry: %w", err)
	}

	if err := repository.NewAuditLogRepository(tx).Create(ctx, log); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// RecordStandalone 在独立事务中追加审计记录,用于授权拒绝等没有业务写入的场景
func (r *auditRecorder) RecordStandalone(ctx context.Context, entry AuditEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.Record(ctx, tx, entry)
	})
}

// ListByRecord 查询某条记录的审计轨迹
func (r *auditRecorder) ListByRecord(ctx context.Context, table string, recordID string) ([]*model.AuditLogModel, error) {
	return repository.NewAuditLogRepository(r.db).FindByRecord(ctx, table, recordID)
}

// ListByUser 查询某个用户的审计记录
func (r *auditRecorder) ListByUser(ctx context.Context, userID string) ([]*model.AuditLogModel, error) {
	return repository.NewAuditLogRepository(r.db).FindByUserID(ctx, userID)
}
