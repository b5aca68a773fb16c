package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	sql := func() (string, int64) { return "SELECT * FROM profiles", 1 }

	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		elapsed time.Duration
		err     error
		wantMsg string
		wantLvl zapcore.Level
	}{
		{"error", gormlogger.Warn, 0, errors.New("syntax"), "SQL error", zapcore.ErrorLevel},
		{"record not found is quiet", gormlogger.Warn, 0, gormlogger.ErrRecordNotFound, "", 0},
		{"slow query", gormlogger.Warn, time.Second, nil, "Slow SQL", zapcore.WarnLevel},
		{"info query", gormlogger.Info, 0, nil, "SQL", zapcore.DebugLevel},
		{"silent", gormlogger.Silent, 0, errors.New("x"), "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level, 100*time.Millisecond)

			gl.Trace(context.Background(), time.Now().Add(-tt.elapsed), sql, tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, recorded.Len())
				return
			}
			logs := recorded.All()
			if assert.Len(t, logs, 1) {
				assert.Equal(t, tt.wantMsg, logs[0].Message)
				assert.Equal(t, tt.wantLvl, logs[0].Level)
			}
		})
	}
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Warn, 0)
	silent := gl.LogMode(gormlogger.Silent).(*GormLogger)

	assert.Equal(t, gormlogger.Silent, silent.level)
	assert.Equal(t, gormlogger.Warn, gl.level)
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, GormLevel("silent"))
	assert.Equal(t, gormlogger.Error, GormLevel("error"))
	assert.Equal(t, gormlogger.Info, GormLevel("debug"))
	assert.Equal(t, gormlogger.Warn, GormLevel("anything"))
}
