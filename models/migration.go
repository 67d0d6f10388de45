package models

import (
	"log"

	"github.com/retrove/consign_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{},
		&Supplier{},
		&Register{},
		&Reception{}, &Item{},
		&Sale{}, &SaleItem{}, &Payment{},
		&StoreCredit{}, &StoreCreditTransaction{},
		&CashBalanceTransaction{},
		&Settlement{},
		&NotificationOutboxRecord{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("Migration Done")
}
