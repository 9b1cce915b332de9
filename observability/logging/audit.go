package logging

import (
	"context"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditSinkConfig configures the rotating file sink for privileged-action
// audit records. This is kept separate from the stdout JSON operational
// log Setup configures, since audit entries must survive independently of
// whatever log aggregation the host has for ordinary service output.
type AuditSinkConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AuditSink appends structured audit records to a size/age-rotated file.
type AuditSink struct {
	logger *slog.Logger
	file   *lumberjack.Logger
}

// NewAuditSink opens (creating if needed) a rotating log file at cfg.Path.
func NewAuditSink(cfg AuditSinkConfig) *AuditSink {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 100
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 30
	}
	file := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{AddSource: false})
	return &AuditSink{logger: slog.New(handler), file: file}
}

// Record appends one audit entry as a structured log line.
func (s *AuditSink) Record(msg string, attrs ...slog.Attr) {
	if s == nil {
		return
	}
	s.logger.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)
}

// Close flushes and closes the current rotated file.
func (s *AuditSink) Close() error {
	if s == nil {
		return nil
	}
	return s.file.Close()
}
