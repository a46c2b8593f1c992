package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultTemperature is the temperature, in °C, of newly added thermostats.
const DefaultTemperature = 21

var (
	// ErrDatabaseNotInitialized is returned when database operations are attempted before initialization.
	ErrDatabaseNotInitialized = errors.New("database not initialized")
	// ErrThermostatNotFound is returned when no thermostat has the requested id.
	ErrThermostatNotFound = errors.New("thermostat not found")
)

// User represents a panel account.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex" json:"username"`
	Password  string    `json:"-"` // Hashed password, never exposed in JSON responses.
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Thermostat is a managed thermostat. Rows are listed in insertion order.
type Thermostat struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Temperature int       `json:"temperature"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// Open opens the SQLite database at path and runs migrations.
// Use ":memory:" for a throwaway database.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&User{}, &Thermostat{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// FindUser looks up a user by name. It returns gorm.ErrRecordNotFound when absent.
func FindUser(db *gorm.DB, username string) (*User, error) {
	if db == nil {
		return nil, ErrDatabaseNotInitialized
	}

	var user User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListThermostats returns every thermostat in insertion order.
func ListThermostats(db *gorm.DB) ([]Thermostat, error) {
	if db == nil {
		return nil, ErrDatabaseNotInitialized
	}

	thermostats := []Thermostat{}
	if err := db.Order("rowid asc").Find(&thermostats).Error; err != nil {
		return nil, err
	}
	return thermostats, nil
}

// CreateThermostat adds a thermostat with a fresh UUID and the given temperature.
func CreateThermostat(db *gorm.DB, temperature int) (*Thermostat, error) {
	if db == nil {
		return nil, ErrDatabaseNotInitialized
	}

	t := Thermostat{
		ID:          uuid.NewString(),
		Temperature: temperature,
	}
	if err := db.Create(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetThermostat returns the thermostat with the given id or ErrThermostatNotFound.
func GetThermostat(db *gorm.DB, id string) (*Thermostat, error) {
	if db == nil {
		return nil, ErrDatabaseNotInitialized
	}

	var t Thermostat
	if err := db.Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThermostatNotFound
		}
		return nil, err
	}
	return &t, nil
}

// RemoveThermostat deletes the thermostat with the given id and returns it.
func RemoveThermostat(db *gorm.DB, id string) (*Thermostat, error) {
	var removed *Thermostat
	err := transaction(db, func(tx *gorm.DB) error {
		t, err := GetThermostat(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(t).Error; err != nil {
			return err
		}
		removed = t
		return nil
	})
	return removed, err
}

// SetTemperature updates the temperature of an existing thermostat.
func SetTemperature(db *gorm.DB, id string, temperature int) (*Thermostat, error) {
	var updated *Thermostat
	err := transaction(db, func(tx *gorm.DB) error {
		t, err := GetThermostat(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(t).Update("temperature", temperature).Error; err != nil {
			return err
		}
		t.Temperature = temperature
		updated = t
		return nil
	})
	return updated, err
}

func transaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return ErrDatabaseNotInitialized
	}
	return db.Transaction(fn)
}
