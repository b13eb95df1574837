package config

import (
	"log"

	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedUsers(); err != nil {
		log.Printf("⚠️ User seeder skipped: %v", err)
	}
	if err := s.seedAssets(); err != nil {
		log.Printf("⚠️ Asset seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedUsers seeds one account per role.
// This is for development/testing only
func (s *Seeder) seedUsers() error {
	var count int64
	s.db.Model(&models.User{}).Count(&count)
	if count > 0 {
		return nil
	}

	hashedPassword, err := password.Hash("password123")
	if err != nil {
		return err
	}

	users := []models.User{
		{Username: "admin", Email: "admin@ministry.local", Role: "ADMIN", FullName: "System Administrator", Division: "ICT"},
		{Username: "approver", Email: "approver@ministry.local", Role: "APPROVER", FullName: "Head of ICT", Division: "ICT", Position: "Director"},
		{Username: "staff", Email: "staff@ministry.local", Role: "STAFF", FullName: "Issuing Officer", Division: "ICT", Position: "Technician"},
		{Username: "employee", Email: "employee@ministry.local", Role: "USER", FullName: "Ministry Employee", Phone: "0300000000", Division: "Finance"},
	}
	for i := range users {
		users[i].Password = hashedPassword
		users[i].IsActive = true
	}

	if err := s.db.Create(&users).Error; err != nil {
		return err
	}

	log.Printf("✅ Seeded %d users", len(users))
	return nil
}

// seedAssets seeds a small inventory
func (s *Seeder) seedAssets() error {
	var count int64
	s.db.Model(&models.Asset{}).Count(&count)
	if count > 0 {
		return nil
	}

	assets := []models.Asset{
		{Tag: "LAP-0001", Name: "Dell Latitude 5440", Category: "laptop", Condition: "excellent", CurrentValue: 4200},
		{Tag: "LAP-0002", Name: "Dell Latitude 5440", Category: "laptop", Condition: "good", CurrentValue: 4200},
		{Tag: "PRJ-0001", Name: "Epson EB-X51 Projector", Category: "projector", Condition: "good", CurrentValue: 2600},
		{Tag: "CAM-0001", Name: "Canon EOS 90D", Category: "camera", Condition: "good", CurrentValue: 5100},
		{Tag: "SPK-0001", Name: "JBL EON710 Speaker", Category: "audio", Condition: "fair", CurrentValue: 1800},
	}
	for i := range assets {
		assets[i].Status = "available"
	}

	if err := s.db.Create(&assets).Error; err != nil {
		return err
	}

	log.Printf("✅ Seeded %d assets", len(assets))
	return nil
}
