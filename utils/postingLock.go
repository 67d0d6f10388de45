package utils

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireSupplierPostingLock serializes ledger posting per supplier across
// instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will do the posting transaction.
// NOTE: advisory locks are not transactional. A RELEASE_LOCK issued inside
// a transaction runs before COMMIT, so the lock orders entry into the
// posting section but does not guarantee a later holder sees this
// transaction's writes. Every balance check made under this lock must also
// take a FOR UPDATE row lock (supplier, settlement or item rows) so the
// check blocks on the commit itself.
func AcquireSupplierPostingLock(tx *gorm.DB, supplierId int) error {
	lockName := fmt.Sprintf("posting:supplier:%d", supplierId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for supplier_id=%d", supplierId)
	}
	return nil
}

func ReleaseSupplierPostingLock(tx *gorm.DB, supplierId int) {
	lockName := fmt.Sprintf("posting:supplier:%d", supplierId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
