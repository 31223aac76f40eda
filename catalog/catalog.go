package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"GiftFM/logger"
	"GiftFM/model"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when a catalog entry does not exist.
var ErrNotFound = errors.New("audio file not found")

// Catalog is the file-backed audio library: imported clips live under
// LibraryDir, their metadata in a local sqlite database.
type Catalog struct {
	db         *gorm.DB
	libraryDir string
}

// Open opens the catalog database at dbPath and ensures libraryDir exists.
func Open(dbPath, libraryDir string) (*Catalog, error) {
	if err := os.MkdirAll(libraryDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create library dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	if err := db.AutoMigrate(&model.AudioFile{}); err != nil {
		return nil, fmt.Errorf("failed to migrate catalog schema: %w", err)
	}

	abs, err := filepath.Abs(libraryDir)
	if err != nil {
		return nil, err
	}
	return &Catalog{db: db, libraryDir: abs}, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LibraryDir returns the absolute library directory.
func (c *Catalog) LibraryDir() string {
	return c.libraryDir
}

// List returns all catalog entries ordered by creation time.
func (c *Catalog) List() ([]model.AudioFile, error) {
	var files []model.AudioFile
	if err := c.db.Order("created_at asc").Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// Get returns the entry with the given id.
func (c *Catalog) Get(id string) (*model.AudioFile, error) {
	var f model.AudioFile
	err := c.db.First(&f, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetByPath returns the entry whose file lives at path.
func (c *Catalog) GetByPath(path string) (*model.AudioFile, error) {
	var f model.AudioFile
	err := c.db.First(&f, "path = ?", path).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Rename updates the display name of an entry.
func (c *Catalog) Rename(id, displayName string) error {
	res := c.db.Model(&model.AudioFile{}).Where("id = ?", id).Update("display_name", displayName)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetGain updates the per-file gain, clamped to [0,1].
func (c *Catalog) SetGain(id string, gain float64) error {
	if gain < 0 {
		gain = 0
	} else if gain > 1 {
		gain = 1
	}
	res := c.db.Model(&model.AudioFile{}).Where("id = ?", id).Update("gain", gain)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the entry and its file from disk. The file being already
// gone is not an error. Returns the removed entry so callers can prune
// mappings referencing its path.
func (c *Catalog) Delete(id string) (*model.AudioFile, error) {
	f, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	if err := c.db.Delete(&model.AudioFile{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove audio file from disk",
			logger.String("path", f.Path), logger.ErrorField(err))
	}
	return f, nil
}

// DeleteByPath removes the entry whose file lived at path, without touching
// the filesystem. Used by the library watcher after an external delete.
func (c *Catalog) DeleteByPath(path string) (*model.AudioFile, error) {
	f, err := c.GetByPath(path)
	if err != nil {
		return nil, err
	}
	if err := c.db.Delete(&model.AudioFile{}, "id = ?", f.ID).Error; err != nil {
		return nil, err
	}
	return f, nil
}

// register inserts a catalog row for a file already present in the library.
func (c *Catalog) register(path, displayName string) (*model.AudioFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	f := &model.AudioFile{
		ID:          uuid.NewString(),
		Path:        path,
		DisplayName: displayName,
		Gain:        1.0,
		SizeBytes:   info.Size(),
		Duration:    EstimateDuration(path, info.Size()),
	}
	if err := c.db.Create(f).Error; err != nil {
		return nil, err
	}
	logger.Info("audio file imported",
		logger.String("id", f.ID),
		logger.String("name", f.DisplayName),
		logger.Float64("duration", f.Duration))
	return f, nil
}
