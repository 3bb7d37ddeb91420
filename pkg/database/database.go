package database

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oncohub/oncohub/internal/config"
	"github.com/oncohub/oncohub/internal/domain"
	"github.com/oncohub/oncohub/internal/domain/casefile"
	"github.com/oncohub/oncohub/internal/domain/doctor"
	"github.com/oncohub/oncohub/internal/domain/patient"
	"github.com/oncohub/oncohub/internal/domain/request"
	"github.com/oncohub/oncohub/pkg/metrics"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

const queryStartKey = "oncohub:query_start"

// Instrument registers gorm callbacks that record per-query latency and
// the current size of the connection pool on the collector. A nil
// collector is a no-op.
func Instrument(db *gorm.DB, collector *metrics.Collector) error {
	if collector == nil {
		return nil
	}

	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			collector.DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
			if sqlDB, err := tx.DB(); err == nil {
				collector.DBConnections.Set(float64(sqlDB.Stats().OpenConnections))
			}
		}
	}

	return errors.Join(
		db.Callback().Create().Before("gorm:create").Register("metrics:before_create", before),
		db.Callback().Create().After("gorm:create").Register("metrics:after_create", after("create")),
		db.Callback().Query().Before("gorm:query").Register("metrics:before_query", before),
		db.Callback().Query().After("gorm:query").Register("metrics:after_query", after("query")),
		db.Callback().Update().Before("gorm:update").Register("metrics:before_update", before),
		db.Callback().Update().After("gorm:update").Register("metrics:after_update", after("update")),
		db.Callback().Delete().Before("gorm:delete").Register("metrics:before_delete", before),
		db.Callback().Delete().After("gorm:delete").Register("metrics:after_delete", after("delete")),
		db.Callback().Row().Before("gorm:row").Register("metrics:before_row", before),
		db.Callback().Row().After("gorm:row").Register("metrics:after_row", after("row")),
		db.Callback().Raw().Before("gorm:raw").Register("metrics:before_raw", before),
		db.Callback().Raw().After("gorm:raw").Register("metrics:after_raw", after("raw")),
	)
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"identity", "clinical", "audit"} // logical namespaces
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.AuditLog{},
		&patient.Patient{},
		&doctor.Doctor{},
		&request.DoctorRequest{},
		&casefile.CaseRecord{},
		&casefile.Addendum{},
		&casefile.MedicalFile{},
		&casefile.RiskAssessment{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB) error {
	_ = db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error

	indexes := []struct {
		name  string
		query string
	}{
		// The access predicate is evaluated on every gated doctor read;
		// a partial index keeps the accepted-pair lookup cheap.
		{
			name:  "idx_requests_accepted_pair",
			query: `CREATE INDEX IF NOT EXISTS idx_requests_accepted_pair ON clinical.doctor_requests (doctor_id, patient_id) WHERE status = 'accepted'`,
		},
		{
			name:  "idx_requests_doctor_inbox",
			query: `CREATE INDEX IF NOT EXISTS idx_requests_doctor_inbox ON clinical.doctor_requests (doctor_id, status, created_at)`,
		},
		// Doctor directory search: GIN index for name search
		{
			name:  "idx_doctors_name_search",
			query: `CREATE INDEX IF NOT EXISTS idx_doctors_name_trgm ON clinical.doctors USING gin ((first_name || ' ' || last_name) gin_trgm_ops) WHERE deleted_at IS NULL`,
		},
		{
			name:  "idx_assessments_patient_history",
			query: `CREATE INDEX IF NOT EXISTS idx_assessments_patient_history ON clinical.risk_assessments (patient_id, created_at DESC)`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}

	return nil
}
