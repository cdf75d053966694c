package database

import (
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/0xChampi/hyper-threat-tokencast/internal/models"
)

// SeedAdminUser creates the default admin account if no admin exists yet.
// The password comes from config (TOKENCAST_AUTH_ADMIN_PASSWORD).
func SeedAdminUser(db *gorm.DB, password string) {
	var count int64
	db.Model(&models.User{}).Where("role = ?", "admin").Count(&count)
	if count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("⚠️ Could not hash admin password: %v", err)
		return
	}

	admin := models.User{
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         "admin",
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Printf("⚠️ Could not seed admin user: %v", err)
		return
	}
	log.Println("✅ Seeded default admin user (change the password!)")
}
