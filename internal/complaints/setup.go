package complaints

import (
	"log"

	"github.com/citysafe/citysafe-backend/internal/db"
)

func Init() {
	if err := db.DB.AutoMigrate(&Neighborhood{}, &Complaint{}); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}
}
