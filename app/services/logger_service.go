package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const logDayLayout = "2006-01-02"

// LoggerOptions configures the application logger
type LoggerOptions struct {
	Dir     string
	Level   string
	Console bool
}

// LoggerService handles application logging: a console core plus a JSON core
// writing to one file per day
type LoggerService struct {
	logDir string
	file   *dailyFile
	logger *zap.Logger
}

// NewLoggerService creates a new logger service. When the log directory cannot be
// created it falls back to console-only logging.
func NewLoggerService(opts LoggerOptions) *LoggerService {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			level.SetLevel(zapcore.InfoLevel)
		}
	}

	s := &LoggerService{logDir: opts.Dir}
	var cores []zapcore.Core

	if opts.Console {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level))
	}

	var fileErr error
	if opts.Dir != "" {
		if fileErr = os.MkdirAll(opts.Dir, 0755); fileErr == nil {
			s.file = &dailyFile{dir: opts.Dir, now: time.Now}
			if fileErr = s.file.rotate(); fileErr == nil {
				encCfg := zap.NewProductionEncoderConfig()
				encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
				cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), s.file, level))
			} else {
				s.file = nil
			}
		}
	}

	s.logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	if fileErr != nil {
		s.LogWarning("Could not create log file, logging to console only", fileErr.Error())
	} else if s.file != nil {
		s.LogInfo("Logger initialized", fmt.Sprintf("Log directory: %s", s.logDir))
	}
	return s
}

// NewLoggerServiceFrom wraps an existing zap logger, mostly for tests
func NewLoggerServiceFrom(logger *zap.Logger) *LoggerService {
	return &LoggerService{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

// Logger returns a named child logger for a component
func (s *LoggerService) Logger(name string) *zap.Logger {
	return s.logger.WithOptions(zap.AddCallerSkip(-1)).Named(name)
}

// LogInfo logs an informational message
func (s *LoggerService) LogInfo(message string, details ...string) {
	s.logger.Info(message, detailFields(details)...)
}

// LogWarning logs a warning message
func (s *LoggerService) LogWarning(message string, details ...string) {
	s.logger.Warn(message, detailFields(details)...)
}

// LogError logs an error message
func (s *LoggerService) LogError(message string, err error, details ...string) {
	fields := detailFields(details)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Error(message, fields...)
}

// LogPanic logs a recovered panic with stack trace
func (s *LoggerService) LogPanic(recovered interface{}) {
	s.logger.Error("Recovered from panic", zap.Any("panic", recovered), zap.Stack("stack"))
}

// RecoverPanic is a helper to recover from panics in goroutines
func (s *LoggerService) RecoverPanic() {
	if r := recover(); r != nil {
		s.LogPanic(r)
	}
}

// GetLogDirectory returns the directory where logs are stored
func (s *LoggerService) GetLogDirectory() string {
	return s.logDir
}

// GetTodayLogPath returns the path to today's log file
func (s *LoggerService) GetTodayLogPath() string {
	return filepath.Join(s.logDir, time.Now().Format(logDayLayout)+".log")
}

// CleanOldLogs removes *.log files not modified within daysToKeep days and returns
// how many were deleted
func (s *LoggerService) CleanOldLogs(daysToKeep int) (int, error) {
	if s.logDir == "" {
		return 0, nil
	}
	files, err := os.ReadDir(s.logDir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	today := ""
	if s.file != nil {
		today = s.file.currentName()
	}

	removed := 0
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".log" || file.Name() == today {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.logDir, file.Name())
			if err := os.Remove(path); err != nil {
				s.LogWarning("Could not delete old log file", path)
				continue
			}
			s.LogInfo("Deleted old log file", path)
			removed++
		}
	}
	return removed, nil
}

// Close flushes and closes the log file
func (s *LoggerService) Close() {
	_ = s.logger.Sync()
	if s.file != nil {
		s.file.Close()
	}
}

func detailFields(details []string) []zap.Field {
	if len(details) == 0 || details[0] == "" {
		return nil
	}
	return []zap.Field{zap.String("details", strings.Join(details, " | "))}
}

// dailyFile is a WriteSyncer that switches to a new YYYY-MM-DD.log file when the
// day changes
type dailyFile struct {
	mu         sync.Mutex
	dir        string
	now        func() time.Time
	file       *os.File
	currentDay string
}

func (d *dailyFile) rotate() error {
	today := d.now().Format(logDayLayout)
	if d.currentDay == today && d.file != nil {
		return nil
	}
	file, err := os.OpenFile(filepath.Join(d.dir, today+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if d.file != nil {
		d.file.Close()
	}
	d.file = file
	d.currentDay = today
	return nil
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.rotate(); err != nil && d.file == nil {
		return 0, err
	}
	return d.file.Write(p)
}

func (d *dailyFile) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	return d.file.Sync()
}

func (d *dailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *dailyFile) currentName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.currentDay == "" {
		return ""
	}
	return d.currentDay + ".log"
}
