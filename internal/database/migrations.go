package database

import (
	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.Ride{},
		&models.DriverStatus{},
		&models.ChatMessage{},
	)
	if err != nil {
		return err
	}

	// Update users table
	if db.Migrator().HasTable(&models.User{}) {
		columns := []string{
			"ADD COLUMN IF NOT EXISTS vehicle_type text DEFAULT ''",
			"ADD COLUMN IF NOT EXISTS car_plate text DEFAULT ''",
			"ADD COLUMN IF NOT EXISTS avatar_url text DEFAULT ''",
			"ADD COLUMN IF NOT EXISTS document_url text DEFAULT ''",
			"ADD COLUMN IF NOT EXISTS fcm_token text DEFAULT ''",
			"ADD COLUMN IF NOT EXISTS role text DEFAULT 'customer'",
		}

		for _, column := range columns {
			if err := db.Exec("ALTER TABLE users " + column).Error; err != nil {
				return err
			}
		}

		// Update constraint
		db.Exec(`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_role_check`)
		db.Exec(`ALTER TABLE users ADD CONSTRAINT users_role_check CHECK (role IN ('customer', 'driver', 'admin'))`)
	}

	// Enforce the closed ride status set at the store level. Conditional
	// updates rely on these exact values.
	if db.Migrator().HasTable(&models.Ride{}) {
		db.Exec(`ALTER TABLE rides DROP CONSTRAINT IF EXISTS rides_status_check`)
		if err := db.Exec(`ALTER TABLE rides ADD CONSTRAINT rides_status_check CHECK (status IN ('pending', 'scheduled', 'accepted', 'in_progress', 'completed', 'cancelled', 'no_show'))`).Error; err != nil {
			return err
		}

		// A ride is owned by a driver exactly while accepted/in_progress/
		// completed; cancellation and no-show clear the assignment.
		db.Exec(`ALTER TABLE rides DROP CONSTRAINT IF EXISTS rides_driver_status_check`)
		if err := db.Exec(`ALTER TABLE rides ADD CONSTRAINT rides_driver_status_check CHECK (
			(driver_id IS NULL AND status IN ('pending', 'scheduled', 'cancelled', 'no_show'))
			OR (driver_id IS NOT NULL AND status IN ('accepted', 'in_progress', 'completed'))
		)`).Error; err != nil {
			return err
		}
	}

	return nil
}
