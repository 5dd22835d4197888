package tenant

import "gorm.io/gorm"

// ForBank returns a GORM scope that filters by bank_id.
func ForBank(bankID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("bank_id = ?", bankID)
	}
}
