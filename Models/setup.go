package Models

import (
	"log"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the application database and migrates the schema.
// SQLite is the default; set DB_DSN to run against MySQL instead, e.g.
// "rishui:secret@tcp(127.0.0.1:3306)/rishui?parseTime=true".
func Connect() {
	var (
		connection *gorm.DB
		err        error
	)

	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		connection, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	} else {
		connection, err = gorm.Open(sqlite.Open("database.db"), &gorm.Config{})
	}
	if err != nil {
		log.Fatalln("Failed to connect to database:", err)
	}
	DB = connection

	Migrate(DB)
}

// Migrate runs the ordered schema migration. Split out of Connect so tests
// can migrate their own databases.
func Migrate(db *gorm.DB) {
	// 1. Base entities with no foreign keys
	db.AutoMigrate(
		&User{},
		&LicensingItem{},
		&InspectionDefect{},
	)

	// 2. Businesses reference licensing items
	db.AutoMigrate(&Business{})

	// 3. Reports reference businesses and inspectors
	db.AutoMigrate(&Report{})
}
