package database

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"

	"github.com/oncohub/oncohub/pkg/metrics"
)

func TestInstrumentRecordsQueryDuration(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}

	collector := metrics.NewCollector("oncohub_test")
	if err := Instrument(db, collector); err != nil {
		t.Fatalf("Instrument: %v", err)
	}
	if db.Callback().Query().Get("metrics:after_query") == nil {
		t.Fatal("query callback not registered")
	}

	var rows []map[string]any
	db.Table("clinical.patients").Find(&rows)

	if got := testutil.CollectAndCount(collector.DBQueryDuration); got == 0 {
		t.Error("no query duration samples recorded")
	}
}

func TestInstrumentNilCollector(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	if err := Instrument(db, nil); err != nil {
		t.Fatalf("Instrument with nil collector: %v", err)
	}
	if db.Callback().Query().Get("metrics:after_query") != nil {
		t.Error("callbacks registered despite nil collector")
	}
}
