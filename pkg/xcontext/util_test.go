package xcontext

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type counter struct {
	ID    string `gorm:"primaryKey"`
	Value int
}

func mockDBContext(t *testing.T) context.Context {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&counter{}))
	return WithDB(context.Background(), db)
}

func count(t *testing.T, ctx context.Context) int64 {
	var n int64
	require.NoError(t, DB(ctx).Model(&counter{}).Count(&n).Error)
	return n
}

func TestDBTransaction_Commit(t *testing.T) {
	ctx := mockDBContext(t)

	txCtx := WithDBTransaction(ctx)
	defer WithRollbackDBTransaction(txCtx)

	require.NoError(t, DB(txCtx).Create(&counter{ID: "a"}).Error)
	require.NoError(t, WithCommitDBTransaction(txCtx))

	// Rollback after commit does nothing.
	WithRollbackDBTransaction(txCtx)
	require.Equal(t, int64(1), count(t, ctx))
}

func TestDBTransaction_Rollback(t *testing.T) {
	ctx := mockDBContext(t)

	txCtx := WithDBTransaction(ctx)
	require.NoError(t, DB(txCtx).Create(&counter{ID: "a"}).Error)
	WithRollbackDBTransaction(txCtx)

	require.Zero(t, count(t, ctx))
}

func TestDBTransaction_Joined(t *testing.T) {
	ctx := mockDBContext(t)

	outer := WithDBTransaction(ctx)
	require.NoError(t, DB(outer).Create(&counter{ID: "a"}).Error)

	inner := WithDBTransaction(outer)
	require.NoError(t, DB(inner).Create(&counter{ID: "b"}).Error)

	// The inner commit is left to the outer owner.
	require.NoError(t, WithCommitDBTransaction(inner))
	require.Equal(t, int64(2), count(t, outer))

	WithRollbackDBTransaction(outer)
	require.Zero(t, count(t, ctx))

	outer = WithDBTransaction(ctx)
	inner = WithDBTransaction(outer)
	require.NoError(t, DB(inner).Create(&counter{ID: "c"}).Error)

	// Neither does a joined rollback undo the outer transaction.
	WithRollbackDBTransaction(inner)
	require.NoError(t, WithCommitDBTransaction(outer))
	require.Equal(t, int64(1), count(t, ctx))
}

func TestConfigsAndLogger_Defaults(t *testing.T) {
	ctx := context.Background()
	require.Empty(t, Configs(ctx).Env)
	require.NotNil(t, Logger(ctx))
	require.Empty(t, RequestUserID(ctx))
	require.Nil(t, Error(ctx))
}

func TestWithoutCancel(t *testing.T) {
	parent, cancel := context.WithTimeout(WithRequestUserID(context.Background(), "user1"), time.Minute)
	ctx := WithoutCancel(parent)
	cancel()

	require.Error(t, parent.Err())
	require.NoError(t, ctx.Err())
	require.Nil(t, ctx.Done())

	_, ok := ctx.Deadline()
	require.False(t, ok)
	require.Equal(t, "user1", RequestUserID(ctx))
}
