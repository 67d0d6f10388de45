package main

import (
	"flag"
	"log"

	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ledger-recheck audits the cached store-credit balances and the sale
// totals against the append-only transaction rows they are derived from.
// It reports drift; with -fix it also repairs the cached balance columns.
// The signed transaction logs themselves are never touched.
func main() {
	fix := flag.Bool("fix", false, "repair cached balances that drifted from the transaction log")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()

	drift := 0
	drift += recheckStoreCredits(db, *fix)
	drift += recheckSaleTotals(db)
	drift += recheckCashLedger(db)

	if drift == 0 {
		log.Println("ledger-recheck: no drift found")
		return
	}
	log.Printf("ledger-recheck: %d discrepancies found", drift)
}

func recheckStoreCredits(db *gorm.DB, fix bool) int {
	var credits []models.StoreCredit
	if err := db.Find(&credits).Error; err != nil {
		log.Fatalf("loading store credits: %v", err)
	}

	drift := 0
	for _, credit := range credits {
		var sum decimal.NullDecimal
		err := db.Model(&models.StoreCreditTransaction{}).
			Where("store_credit_id = ?", credit.ID).
			Select("sum(amount)").Scan(&sum).Error
		if err != nil {
			log.Fatalf("summing transactions for credit %d: %v", credit.ID, err)
		}
		expected := decimal.Zero
		if sum.Valid {
			expected = sum.Decimal
		}
		if credit.CurrentBalance.Equal(expected) {
			continue
		}
		drift++
		log.Printf("store credit %d: cached balance %s, transaction sum %s",
			credit.ID, credit.CurrentBalance, expected)
		if fix {
			if err := db.Model(&models.StoreCredit{}).Where("id = ?", credit.ID).
				Update("current_balance", expected).Error; err != nil {
				log.Fatalf("repairing credit %d: %v", credit.ID, err)
			}
			log.Printf("store credit %d: repaired", credit.ID)
		}
	}
	return drift
}

func recheckSaleTotals(db *gorm.DB) int {
	var sales []models.Sale
	if err := db.Preload("SaleItems").Find(&sales).Error; err != nil {
		log.Fatalf("loading sales: %v", err)
	}

	drift := 0
	for _, sale := range sales {
		var sum decimal.Decimal
		for _, line := range sale.SaleItems {
			sum = sum.Add(line.FinalPrice)
		}
		if sum.Equal(sale.TotalAmount) {
			continue
		}
		drift++
		log.Printf("sale %s: total %s, line sum %s", sale.SaleNumber, sale.TotalAmount, sum)
	}
	return drift
}

// The cash ledger has no cached column; here we only flag negative
// balances, which the posting lock should make impossible.
func recheckCashLedger(db *gorm.DB) int {
	type supplierSum struct {
		SupplierId int
		Total      decimal.Decimal
	}
	var sums []supplierSum
	err := db.Model(&models.CashBalanceTransaction{}).
		Select("supplier_id, sum(amount) as total").
		Group("supplier_id").Scan(&sums).Error
	if err != nil {
		log.Fatalf("summing cash ledger: %v", err)
	}

	drift := 0
	for _, s := range sums {
		if s.Total.IsNegative() {
			drift++
			log.Printf("supplier %d: negative cash balance %s", s.SupplierId, s.Total)
		}
	}
	return drift
}
