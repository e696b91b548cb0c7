package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func mockOptions(db *gorm.DB) Options {
	return Options{DB: db, Clock: newStepClock(), Logger: quietLogger(), Timeout: time.Second}
}

// TestRequestService_StorageFailure 存储故障映射为 Unavailable 并回滚
func TestRequestService_StorageFailure(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewRequestService(mockOptions(db))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "data_requests" WHERE id = \$1`).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	p := model.Principal{UserID: "u-b", MinistryID: "m-b", Role: model.RoleAdmin}
	err := svc.Approve(context.Background(), p, "6f1c2a7e-0000-4000-8000-000000000000")
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.NotContains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRequestService_ConditionalUpdate 条件更新未命中时返回 Conflict
func TestRequestService_ConditionalUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewRequestService(mockOptions(db))
	id := "6f1c2a7e-0000-4000-8000-000000000001"

	requestRow := func(status string) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "requesting_ministry_id", "target_ministry_id", "requested_by", "title", "description", "request_type", "priority", "status", "requested_date"}).
			AddRow(id, "m-a", "m-b", "u-a", "Census data", "Population", "data", "high", status, time.Now())
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "data_requests" WHERE id = \$1`).WillReturnRows(requestRow("pending"))
	mock.ExpectQuery(`SELECT \* FROM "ministries" WHERE id IN \(\$1,\$2\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "abbreviation", "status"}).
			AddRow("m-a", "A", "MINA", "active").
			AddRow("m-b", "B", "MINB", "active"))
	// 另一个事务已先行处理
	mock.ExpectExec(`UPDATE "data_requests" SET .* WHERE \(?id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "data_requests" WHERE id = \$1`).WillReturnRows(requestRow("approved"))
	mock.ExpectRollback()

	p := model.Principal{UserID: "u-b", MinistryID: "m-b", Role: model.RoleAdmin}
	err := svc.Approve(context.Background(), p, id)
	assert.True(t, errors.Is(err, ErrAlreadyResolved))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMinistryService_DeleteLocksRow 删除部委时加行锁并在引用存在时回滚
func TestMinistryService_DeleteLocksRow(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewMinistryService(mockOptions(db), nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "ministries" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "abbreviation", "status"}).AddRow("m-c", "C", "MINC", "active"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE ministry_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "data_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	super := model.Principal{UserID: "root", MinistryID: "m-a", Role: model.RoleSuperAdmin}
	err := svc.Delete(context.Background(), super, "m-c")
	assert.True(t, errors.Is(err, ErrMinistryInUse))
	assert.NoError(t, mock.ExpectationsWereMet())
}
