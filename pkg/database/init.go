package database

import (
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/harveywai/thermopanel/pkg/auth"
)

// SeedUser describes an account created on first start.
type SeedUser struct {
	Username string
	Password string
	Role     string
}

// SeedUsers creates the given accounts if no users exist yet.
func SeedUsers(db *gorm.DB, users []SeedUser, log zerolog.Logger) error {
	if db == nil {
		return ErrDatabaseNotInitialized
	}

	var count int64
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, u := range users {
		hashed, err := auth.HashPassword(u.Password)
		if err != nil {
			return err
		}

		role := u.Role
		if role == "" {
			role = "unauthorized"
		}

		user := User{
			Username: u.Username,
			Password: hashed,
			Role:     role,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}

		log.Info().Str("username", user.Username).Str("role", user.Role).Msg("seeded user")
	}

	return nil
}

// SeedThermostat creates one default thermostat when the table is empty.
func SeedThermostat(db *gorm.DB, log zerolog.Logger) error {
	if db == nil {
		return ErrDatabaseNotInitialized
	}

	var count int64
	if err := db.Model(&Thermostat{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	t, err := CreateThermostat(db, DefaultTemperature)
	if err != nil {
		return err
	}

	log.Info().Str("id", t.ID).Int("temperature", t.Temperature).Msg("seeded default thermostat")
	return nil
}
