package data

import (
	"log"

	"github.com/campusnet/modboard/src/api/types"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func MustMySQL(dsn string) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	return db
}

// Migrate creates or updates every table this service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Item{},
		&types.AuditRecord{},
		&types.Ticket{},
		&types.TicketMessage{},
		&types.Staff{},
		&types.Setting{},
	)
}
