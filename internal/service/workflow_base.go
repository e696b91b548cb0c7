package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/auth"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/metrics"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultOperationTimeout 单个操作的默认存储超时
const DefaultOperationTimeout = 5 * time.Second

// Options 服务公共依赖
type Options struct {
	DB      *gorm.DB
	Audit   AuditRecorder
	Clock   Clock
	Logger  logrus.FieldLogger
	Timeout time.Duration
}

// base 各服务共享的事务、授权拒绝与错误处理
type base struct {
	db      *gorm.DB
	audit   AuditRecorder
	clock   Clock
	logger  logrus.FieldLogger
	timeout time.Duration
}

func newBase(opts Options) base {
	b := base{
		db:      opts.DB,
		audit:   opts.Audit,
		clock:   opts.Clock,
		logger:  opts.Logger,
		timeout: opts.Timeout,
	}
	if b.clock == nil {
		b.clock = SystemClock{}
	}
	if b.logger == nil {
		b.logger = logrus.StandardLogger()
	}
	if b.timeout <= 0 {
		b.timeout = DefaultOperationTimeout
	}
	if b.audit == nil {
		b.audit = NewAuditRecorder(b.db, b.clock)
	}
	return b
}

// withTimeout 为一次操作设置存储超时
func (b *base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}

// transaction 在事务中执行 fn,serializable 只在 PostgreSQL 上生效
func (b *base) transaction(ctx context.Context, serializable bool, fn func(tx *gorm.DB) error) error {
	var opts []*sql.TxOptions
	if serializable && b.db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}
	return b.db.WithContext(ctx).Transaction(fn, opts...)
}

// denial 事务内的授权拒绝,事务回滚后由 finish 统一审计
type denial struct {
	op       auth.Operation
	table    string
	recordID string
	decision auth.Decision
}

func (d *denial) Error() string {
	return fmt.Sprintf("%s denied: %s", d.op, d.decision.Reason)
}

func deny(op auth.Operation, table, recordID string, decision auth.Decision) error {
	return &denial{op: op, table: table, recordID: recordID, decision: decision}
}

// finish 将操作结果转换为工作流错误
// 授权拒绝写入独立的 access_denied 审计,存储错误记录完整日志后只返回通用消息
func (b *base) finish(ctx context.Context, p model.Principal, op auth.Operation, err error) error {
	if err == nil {
		return nil
	}

	var d *denial
	if errors.As(err, &d) {
		return b.recordDenial(ctx, p, d)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError("record")
	}

	werr := asWorkflowError(err)
	if KindOf(werr) == KindUnavailable {
		b.logger.WithFields(logrus.Fields{
			"operation":  op,
			"user_id":    p.UserID,
			"request_id": RequestMetaFromContext(ctx).RequestID,
		}).WithError(err).Error("storage operation failed")
	}
	return werr
}

func (b *base) recordDenial(ctx context.Context, p model.Principal, d *denial) error {
	metrics.RecordAccessDenied(string(d.op))
	fields := logrus.Fields{
		"operation":   d.op,
		"user_id":     p.UserID,
		"ministry_id": p.MinistryID,
		"record_id":   d.recordID,
		"reason":      d.decision.Reason,
		"request_id":  RequestMetaFromContext(ctx).RequestID,
	}
	b.logger.WithFields(fields).Warn("access denied")

	// 无法归属到用户的请求不写审计
	if p.UserID == "" {
		return authorizationError()
	}

	entry := AuditEntry{
		UserID:   p.UserID,
		Action:   model.ActionAccessDenied,
		Table:    d.table,
		RecordID: d.recordID,
		Details:  d.Error(),
	}
	if err := b.audit.RecordStandalone(ctx, entry); err != nil {
		b.logger.WithFields(fields).WithError(err).Error("failed to record access denial")
		return unavailableError(err)
	}
	return authorizationError()
}
