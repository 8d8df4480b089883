package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// versionRecord is the cached row of one catalog entry
type versionRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Position  int    `gorm:"index"`
	Name      string `gorm:"index"`
	UUID      string `gorm:"index"`
	Type      int
	FetchedAt time.Time
}

func (versionRecord) TableName() string {
	return "versions"
}

// Store caches the catalog in a SQLite database so it can be used offline
type Store struct {
	db *gorm.DB
}

// OpenStore opens or creates the cache database at path
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog cache %s: %w", path, err)
	}
	if err := db.AutoMigrate(&versionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate catalog cache: %w", err)
	}
	return &Store{db: db}, nil
}

// Save replaces the cached catalog with versions
func (s *Store) Save(ctx context.Context, versions []Version) error {
	now := time.Now().UTC()
	records := make([]versionRecord, len(versions))
	for i, v := range versions {
		records[i] = versionRecord{
			Position:  i,
			Name:      v.Name,
			UUID:      v.UUID,
			Type:      int(v.Type),
			FetchedAt: now,
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&versionRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear catalog cache: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, 200).Error; err != nil {
			return fmt.Errorf("failed to write catalog cache: %w", err)
		}
		return nil
	})
}

// Load returns the cached catalog in its original order
func (s *Store) Load(ctx context.Context) ([]Version, error) {
	var records []versionRecord
	if err := s.db.WithContext(ctx).Order("position").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to read catalog cache: %w", err)
	}

	versions := make([]Version, len(records))
	for i, r := range records {
		t := VersionType(r.Type)
		versions[i] = Version{Name: r.Name, UUID: r.UUID, Type: t, TypeName: t.String()}
	}
	return versions, nil
}

// FetchedAt returns when the cache was last refreshed, or the zero time if it is empty
func (s *Store) FetchedAt(ctx context.Context) (time.Time, error) {
	var record versionRecord
	err := s.db.WithContext(ctx).Order("fetched_at desc").Limit(1).Find(&record).Error
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read catalog cache: %w", err)
	}
	return record.FetchedAt, nil
}

// Close closes the database
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
