package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zulandar/proptalk/internal/backend"
	"github.com/zulandar/proptalk/internal/property"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection so every query sees the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func at(name string, lat, lng float64) property.Summary {
	return property.Summary{Name: name, Location: "Mangalore", Price: "90", Coordinates: &property.LatLng{Lat: lat, Lng: lng}}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open("postgres", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpen_SQLite(t *testing.T) {
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()
	if !db.Migrator().HasTable(&CatalogProperty{}) {
		t.Error("catalog_properties table not created")
	}
}

func TestNewStore_NilDB(t *testing.T) {
	if _, err := NewStore(nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestReplaceAndAll(t *testing.T) {
	s := testStore(t)
	items := []property.Summary{
		at("Ocean Pearl", 12.88, 74.85),
		{Name: "No Coords Residency", Location: "Bejai", Amenities: "Gym, Pool", Builder: "Prestige", Status: "Ready"},
		at("Kadri Heights", 12.89, 74.86),
	}
	if err := s.Replace(items); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if diff := cmp.Diff(items, got); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}

	// A second replace drops rows that are gone.
	if err := s.Replace(items[:1]); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	n, err := s.Count()
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v", n, err)
	}
}

func TestReplace_MergesDuplicates(t *testing.T) {
	s := testStore(t)
	err := s.Replace([]property.Summary{
		{Name: "Ocean Pearl", Price: "85"},
		at("ocean pearl", 12.88, 74.85),
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, _ := s.All()
	if len(got) != 1 || got[0].Price != "85" || !got[0].HasCoordinates() {
		t.Errorf("All() = %+v", got)
	}
}

func TestReplace_Empty(t *testing.T) {
	s := testStore(t)
	s.Replace([]property.Summary{at("Ocean Pearl", 1, 1)})
	if err := s.Replace(nil); err != nil {
		t.Fatalf("Replace(nil): %v", err)
	}
	got, _ := s.All()
	if len(got) != 0 {
		t.Errorf("All() = %d rows", len(got))
	}
}

func TestLastUpdated(t *testing.T) {
	s := testStore(t)
	ts, err := s.LastUpdated()
	if err != nil || !ts.IsZero() {
		t.Errorf("empty LastUpdated() = %v, %v", ts, err)
	}
	before := time.Now().Add(-time.Second)
	s.Replace([]property.Summary{at("Ocean Pearl", 1, 1)})
	ts, err = s.LastUpdated()
	if err != nil || ts.Before(before) {
		t.Errorf("LastUpdated() = %v, %v", ts, err)
	}
}

func listing(items ...property.Summary) func(ctx context.Context) (*backend.PropertyList, error) {
	return func(ctx context.Context) (*backend.PropertyList, error) {
		return &backend.PropertyList{Map: items}, nil
	}
}

func TestNewSyncer_Required(t *testing.T) {
	if _, err := NewSyncer(SyncerOpts{}); err == nil {
		t.Error("expected error for missing source")
	}
	if _, err := NewSyncer(SyncerOpts{Source: backend.NewMock()}); err == nil {
		t.Error("expected error for missing store")
	}
}

func TestSync(t *testing.T) {
	s := testStore(t)
	mock := backend.NewMock()
	mock.ListPropertiesFunc = listing(at("Ocean Pearl", 12.88, 74.85))
	syncer, err := NewSyncer(SyncerOpts{Source: mock, Store: s})
	if err != nil {
		t.Fatalf("NewSyncer: %v", err)
	}

	res, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !res.Changed || len(res.Properties) != 1 {
		t.Errorf("first Sync = %+v", res)
	}

	res, err = syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Changed {
		t.Error("unchanged catalog reported as changed")
	}

	mock.ListPropertiesFunc = listing(at("Ocean Pearl", 12.88, 74.85), at("Kadri Heights", 12.89, 74.86))
	res, _ = syncer.Sync(context.Background())
	if !res.Changed {
		t.Error("new property not reported as a change")
	}
	if n, _ := s.Count(); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestSync_BackendError(t *testing.T) {
	s := testStore(t)
	s.Replace([]property.Summary{at("Ocean Pearl", 1, 1)})
	mock := backend.NewMock()
	mock.ListPropertiesFunc = func(ctx context.Context) (*backend.PropertyList, error) {
		return nil, errors.New("connection refused")
	}
	syncer, _ := NewSyncer(SyncerOpts{Source: mock, Store: s})

	if _, err := syncer.Sync(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if n, _ := s.Count(); n != 1 {
		t.Error("failed sync touched the cache")
	}
}

func TestValidateSchedule(t *testing.T) {
	for _, expr := range []string{"*/15 * * * *", "0 6 * * 1-5", "@hourly", "@every 30m"} {
		if err := ValidateSchedule(expr); err != nil {
			t.Errorf("ValidateSchedule(%q) = %v", expr, err)
		}
	}
	for _, expr := range []string{"", "every day", "* * *", "0 0 0 0 0 0"} {
		if err := ValidateSchedule(expr); err == nil {
			t.Errorf("ValidateSchedule(%q) = nil, want error", expr)
		}
	}
}

func TestRun_InvalidSchedule(t *testing.T) {
	syncer, _ := NewSyncer(SyncerOpts{Source: backend.NewMock(), Store: testStore(t)})
	if err := syncer.Run(context.Background(), "nonsense", nil); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRun_SyncsOnSchedule(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a cron tick")
	}
	s := testStore(t)
	mock := backend.NewMock()
	mock.ListPropertiesFunc = listing(at("Ocean Pearl", 12.88, 74.85))
	syncer, _ := NewSyncer(SyncerOpts{Source: mock, Store: s})

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	got := make(chan []property.Summary, 1)
	done := make(chan error, 1)
	go func() {
		done <- syncer.Run(ctx, "@every 1s", func(items []property.Summary) {
			once.Do(func() { got <- items })
		})
	}()

	select {
	case items := <-got:
		if len(items) != 1 || items[0].Name != "Ocean Pearl" {
			t.Errorf("onChange got %+v", items)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no scheduled sync within 5s")
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}
