package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"
)

// New builds the process logger. Production gets JSON lines, everything
// else the text formatter.
func New(level, environment string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := log.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(lvl)
	if environment == "production" {
		logger.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

// GormLogger routes gorm's messages through logger. SQL tracing is only
// enabled at debug level or below; otherwise gorm stays silent.
func GormLogger(logger *log.Logger) gormlogger.Interface {
	return gormlogger.New(logger, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLevel(logger),
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func gormLevel(logger *log.Logger) gormlogger.LogLevel {
	if logger.IsLevelEnabled(log.DebugLevel) {
		return gormlogger.Info
	}
	return gormlogger.Silent
}
