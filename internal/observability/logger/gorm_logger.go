package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig configures the GORM zap logger.
type GormLoggerConfig struct {
	Level                gormlogger.LogLevel
	SlowThreshold        time.Duration
	IgnoreRecordNotFound bool
}

// DefaultGormLoggerConfig logs failures and slow statements. Repositories turn a
// missing row into a domain not-found error, so those are skipped.
func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        200 * time.Millisecond,
		IgnoreRecordNotFound: true,
	}
}

// GormLogger writes GORM output through the request-scoped zap logger. Bound
// parameters are dropped in ParamsFilter, so logged SQL keeps its placeholders
// and no patient name or fiscal code reaches the logs.
type GormLogger struct {
	cfg GormLoggerConfig
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{cfg: cfg}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cfg := l.cfg
	cfg.Level = level
	return &GormLogger{cfg: cfg}
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Info, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Warn, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Error, msg, data)
}

func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

var gormLevels = map[gormlogger.LogLevel]zapcore.Level{
	gormlogger.Info:  zapcore.InfoLevel,
	gormlogger.Warn:  zapcore.WarnLevel,
	gormlogger.Error: zapcore.ErrorLevel,
}

func (l *GormLogger) message(ctx context.Context, level gormlogger.LogLevel, msg string, data []interface{}) {
	if l.cfg.Level < level {
		return
	}
	if ce := FromContext(ctx).Check(gormLevels[level], msg); ce != nil {
		ce.Write(zap.String("component", "gorm"), zap.Int("args", len(data)))
	}
}

// Trace logs one line per statement at the level traceLevel picks.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	level, ok := l.traceLevel(elapsed, err)
	if !ok {
		return
	}
	ce := FromContext(ctx).Check(level, "db.query")
	if ce == nil {
		return
	}

	sql, rows := fc()
	op, table := statementShape(sql)
	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.String("operation", op),
		zap.String("table", table),
		zap.String("sql", strings.TrimSpace(sql)),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

// traceLevel: failures at Error, slow statements at Warn, the rest at Debug and
// only when the gorm level is Info.
func (l *GormLogger) traceLevel(elapsed time.Duration, err error) (zapcore.Level, bool) {
	switch {
	case l.cfg.Level <= gormlogger.Silent:
		return 0, false
	case err != nil && !(l.cfg.IgnoreRecordNotFound && errors.Is(err, gormlogger.ErrRecordNotFound)):
		return zapcore.ErrorLevel, l.cfg.Level >= gormlogger.Error
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold && l.cfg.Level >= gormlogger.Warn:
		return zapcore.WarnLevel, true
	case l.cfg.Level >= gormlogger.Info:
		return zapcore.DebugLevel, true
	}
	return 0, false
}

// statementShape returns the top-level verb of a statement and the first table it
// names. Subqueries and CTE bodies are skipped.
func statementShape(sql string) (op, table string) {
	op, depth, wantTable := "UNKNOWN", 0, false
	for _, tok := range strings.Fields(sql) {
		lead := len(tok) - len(strings.TrimLeft(tok, "("))
		if lead > 0 {
			wantTable = false
		}
		depth += lead
		word := strings.ToUpper(strings.Trim(tok, "();,"))

		if depth == 0 {
			switch {
			case wantTable:
				table = strings.Trim(strings.Trim(tok, "();,"), "\"`")
				wantTable = false
			case op == "UNKNOWN" && (word == "SELECT" || word == "INSERT" || word == "UPDATE" || word == "DELETE"):
				op = word
				wantTable = word == "UPDATE"
			case op != "UNKNOWN" && table == "" && (word == "FROM" || word == "INTO"):
				wantTable = true
			}
		}
		depth += strings.Count(tok, "(") - lead - strings.Count(tok, ")")
	}
	return op, table
}

var _ gormlogger.Interface = (*GormLogger)(nil)
