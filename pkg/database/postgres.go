package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDB opens the postgres pool. SQL is logged through the process
// logger at the level the logger is set to.
func ConnectDB(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(
		newWriter(log),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLevel(log.GetLevel()),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // Disables implicit prepared statements for Supabase Transaction Mode
	}), &gorm.Config{
		Logger:         gormLogger,
		PrepareStmt:    false,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// Connection Pooling Setup (Penting untuk Production)
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("Database connection established")
	return db, nil
}

func gormLevel(level logrus.Level) logger.LogLevel {
	switch {
	case level >= logrus.DebugLevel:
		return logger.Info
	case level >= logrus.WarnLevel:
		return logger.Warn
	default:
		return logger.Error
	}
}

func newWriter(log *logrus.Logger) logger.Writer {
	return writerFunc(func(format string, args ...interface{}) {
		log.WithField("module", "gorm").Infof(format, args...)
	})
}

type writerFunc func(format string, args ...interface{})

func (f writerFunc) Printf(format string, args ...interface{}) {
	f(format, args...)
}

var _ logger.Writer = writerFunc(nil)

// MustConnect is ConnectDB for one-shot commands that cannot continue without a database.
func MustConnect(dsn string, log *logrus.Logger) *gorm.DB {
	db, err := ConnectDB(dsn, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	return db
}
