package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewGormLogger(zap.New(core), level), logs
}

func TestGormLogger_TraceLogsQuery(t *testing.T) {
	l, logs := newObservedGormLogger(gormlogger.Info)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `SELECT * FROM "stock_items"`, 3
	}, nil)

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "SQL Query", entries[0].Message)
	assert.Equal(t, `SELECT * FROM "stock_items"`, entries[0].ContextMap()["sql"])
	assert.Equal(t, int64(3), entries[0].ContextMap()["rows"])
}

func TestGormLogger_TraceLogsErrors(t *testing.T) {
	l, logs := newObservedGormLogger(gormlogger.Error)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "UPDATE invoice_ledger_entries", 0
	}, errors.New("connection reset"))

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "SQL Error", entries[0].Message)
}

func TestGormLogger_TraceSkipsRecordNotFound(t *testing.T) {
	l, logs := newObservedGormLogger(gormlogger.Error)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 0
	}, gormlogger.ErrRecordNotFound)

	assert.Empty(t, logs.All())
}

func TestGormLogger_SilentLevelSuppressesTrace(t *testing.T) {
	l, logs := newObservedGormLogger(gormlogger.Silent)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)

	assert.Empty(t, logs.All())
}
