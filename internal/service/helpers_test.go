package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/database"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stepClock 每次读取前进一秒,保证时间严格递增
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// testEnv 三个部委、四个用户的测试环境
type testEnv struct {
	db         *gorm.DB
	clock      *stepClock
	opts       Options
	audit      AuditRecorder
	requests   RequestService
	ministries MinistryService
	users      UserService
	stats      StatisticsService

	minA, minB, minC *model.MinistryModel

	u1     model.Principal // user@A
	adminB model.Principal // admin@B
	userB  model.Principal // user@B
	u2     model.Principal // user@C
	super  model.Principal // super_admin@A
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	clock := newStepClock()
	audit := NewAuditRecorder(db, clock)
	opts := Options{DB: db, Audit: audit, Clock: clock, Logger: quietLogger(), Timeout: 5 * time.Second}

	env := &testEnv{
		db:         db,
		clock:      clock,
		opts:       opts,
		audit:      audit,
		requests:   NewRequestService(opts),
		ministries: NewMinistryService(opts, NewDirectoryCache(time.Minute, clock)),
		users:      NewUserService(opts),
		stats:      NewStatisticsService(opts),
	}

	ctx := context.Background()
	env.minA = env.provisionMinistry(t, "Ministry of Planning", "MINA")
	env.minB = env.provisionMinistry(t, "Ministry of Statistics", "MINB")
	env.minC = env.provisionMinistry(t, "Ministry of Culture", "MINC")

	env.u1 = env.provisionUser(t, ctx, env.minA.ID, "u1@mina.gov", model.RoleUser)
	env.adminB = env.provisionUser(t, ctx, env.minB.ID, "admin@minb.gov", model.RoleAdmin)
	env.userB = env.provisionUser(t, ctx, env.minB.ID, "clerk@minb.gov", model.RoleUser)
	env.u2 = env.provisionUser(t, ctx, env.minC.ID, "u2@minc.gov", model.RoleUser)
	env.super = env.provisionUser(t, ctx, env.minA.ID, "root@mina.gov", model.RoleSuperAdmin)
	return env
}

func (env *testEnv) provisionMinistry(t *testing.T, name, abbr string) *model.MinistryModel {
	t.Helper()
	m, err := env.ministries.Provision(context.Background(), MinistryInput{Name: name, Abbreviation: abbr})
	require.NoError(t, err)
	return m
}

func (env *testEnv) provisionUser(t *testing.T, ctx context.Context, ministryID, email string, role model.Role) model.Principal {
	t.Helper()
	u, err := env.users.Provision(ctx, UserInput{MinistryID: ministryID, Email: email, Password: "password123", Role: role})
	require.NoError(t, err)
	return u.Principal()
}

// censusRequest u1@MinA 向 MinB 发起的请求
func (env *testEnv) censusRequest(t *testing.T) *model.DataRequestModel {
	t.Helper()
	req, err := env.requests.Create(context.Background(), env.u1, CreateRequestInput{
		TargetMinistryID: env.minB.ID,
		Title:            "Census data",
		Description:      "Population by district, 2020 census",
		RequestType:      model.RequestTypeData,
		Priority:         model.PriorityHigh,
	})
	require.NoError(t, err)
	return req
}

func (env *testEnv) reload(t *testing.T, id string) *model.DataRequestModel {
	t.Helper()
	var req model.DataRequestModel
	require.NoError(t, env.db.Where("id = ?", id).First(&req).Error)
	return &req
}

func (env *testEnv) countAudit(t *testing.T, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := env.db.Model(&model.AuditLogModel{})
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
