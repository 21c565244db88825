// Package catalog keeps a local copy of the backend's property catalog so
// the client still knows property names and locations when the listing
// endpoint is down.
package catalog

import (
	"fmt"
	"time"

	"github.com/zulandar/proptalk/internal/property"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CatalogProperty is one cached property row.
type CatalogProperty struct {
	ID        uint   `gorm:"primaryKey"`
	Key       string `gorm:"size:255;uniqueIndex"`
	Position  int    `gorm:"index"`
	Name      string `gorm:"size:255"`
	Location  string `gorm:"size:255"`
	Price     string `gorm:"size:64"`
	UnitTypes string `gorm:"size:255"`
	Lat       *float64
	Lng       *float64
	Amenities string `gorm:"type:text"`
	Builder   string `gorm:"size:255"`
	Contact   string `gorm:"size:255"`
	Status    string `gorm:"size:64"`
	PhotoURL  string `gorm:"size:1024"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (CatalogProperty) TableName() string {
	return "catalog_properties"
}

func fromSummary(pos int, s property.Summary) CatalogProperty {
	row := CatalogProperty{
		Key:       property.Key(s.Name),
		Position:  pos,
		Name:      s.Name,
		Location:  s.Location,
		Price:     s.Price,
		UnitTypes: s.UnitTypes,
		Amenities: s.Amenities,
		Builder:   s.Builder,
		Contact:   s.Contact,
		Status:    s.Status,
		PhotoURL:  s.PhotoURL,
	}
	if s.Coordinates != nil {
		lat, lng := s.Coordinates.Lat, s.Coordinates.Lng
		row.Lat, row.Lng = &lat, &lng
	}
	return row
}

func (r CatalogProperty) summary() property.Summary {
	s := property.Summary{
		Name:      r.Name,
		Location:  r.Location,
		Price:     r.Price,
		UnitTypes: r.UnitTypes,
		Amenities: r.Amenities,
		Builder:   r.Builder,
		Contact:   r.Contact,
		Status:    r.Status,
		PhotoURL:  r.PhotoURL,
	}
	if r.Lat != nil && r.Lng != nil {
		s.Coordinates = &property.LatLng{Lat: *r.Lat, Lng: *r.Lng}
	}
	return s
}

// Open connects to the cache database. driver is "sqlite" (the default)
// or "mysql".
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("catalog: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", driver, err)
	}
	return db, nil
}

// Store reads and writes the cached catalog.
type Store struct {
	db *gorm.DB
}

// NewStore migrates the schema and returns a Store.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("catalog: db is required")
	}
	if err := db.AutoMigrate(&CatalogProperty{}); err != nil {
		return nil, fmt.Errorf("catalog: auto-migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Replace swaps the whole cached catalog for items in one transaction.
// Duplicate names keep their first position and merge their fields.
func (s *Store) Replace(items []property.Summary) error {
	merged := property.NewCatalog(items).All()
	rows := make([]CatalogProperty, 0, len(merged))
	for i, it := range merged {
		rows = append(rows, fromSummary(i, it))
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&CatalogProperty{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return fmt.Errorf("catalog: replace: %w", err)
	}
	return nil
}

// All returns the cached catalog in its original order.
func (s *Store) All() ([]property.Summary, error) {
	var rows []CatalogProperty
	if err := s.db.Order("position ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	out := make([]property.Summary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.summary())
	}
	return out, nil
}

// Count returns the number of cached properties.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&CatalogProperty{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("catalog: count: %w", err)
	}
	return n, nil
}

// LastUpdated returns when the cache was last written, or the zero time
// when it is empty.
func (s *Store) LastUpdated() (time.Time, error) {
	var row CatalogProperty
	err := s.db.Order("updated_at DESC").Limit(1).Find(&row).Error
	if err != nil {
		return time.Time{}, fmt.Errorf("catalog: last updated: %w", err)
	}
	return row.UpdatedAt, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("catalog: close: %w", err)
	}
	return sqlDB.Close()
}
