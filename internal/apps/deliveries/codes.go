package deliveries

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
)

const (
	codePrefix      = "qr_"
	codeSuffixLen   = 8
	codeAlphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	maxMintAttempts = 5
)

// CodeAllocator hands out redemption codes. A beneficiary keeps the first
// code ever issued to them; every later delivery reuses it.
type CodeAllocator struct {
	now    func() time.Time
	suffix func() (string, error)
}

func NewCodeAllocator() *CodeAllocator {
	return &CodeAllocator{now: time.Now, suffix: randomSuffix}
}

// CodeRun remembers the codes handed out during one scheduling run so a
// beneficiary never gets two different codes from the same run.
type CodeRun struct {
	byBeneficiary map[uuid.UUID]string
	issued        map[string]uuid.UUID
}

func NewCodeRun() *CodeRun {
	return &CodeRun{
		byBeneficiary: make(map[uuid.UUID]string),
		issued:        make(map[string]uuid.UUID),
	}
}

func (r *CodeRun) remember(beneficiaryID uuid.UUID, code string) {
	r.byBeneficiary[beneficiaryID] = code
	r.issued[code] = beneficiaryID
}

// Allocate returns the beneficiary's code, minting one only when no delivery
// of theirs exists yet. A failed lookup is returned as a store error; no code
// is minted in that case. run may be nil.
func (a *CodeAllocator) Allocate(tx *gorm.DB, bankID string, beneficiaryID uuid.UUID, run *CodeRun) (string, error) {
	if run == nil {
		run = NewCodeRun()
	}
	if code, ok := run.byBeneficiary[beneficiaryID]; ok {
		return code, nil
	}

	code, found, err := existingCode(tx, bankID, beneficiaryID)
	if err != nil {
		return "", err
	}
	if found {
		run.remember(beneficiaryID, code)
		return code, nil
	}

	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		code, err := a.mint()
		if err != nil {
			return "", fmt.Errorf("mint redemption code: %w", err)
		}
		if owner, ok := run.issued[code]; ok && owner != beneficiaryID {
			continue
		}
		taken, err := codeTaken(tx, code, beneficiaryID)
		if err != nil {
			return "", err
		}
		if taken {
			continue
		}
		run.remember(beneficiaryID, code)
		return code, nil
	}
	return "", fmt.Errorf("mint redemption code: no free code after %d attempts", maxMintAttempts)
}

// existingCode looks up the code of the beneficiary's oldest delivery.
func existingCode(tx *gorm.DB, bankID string, beneficiaryID uuid.UUID) (string, bool, error) {
	var codes []string
	err := tx.Model(&Delivery{}).Scopes(tenant.ForBank(bankID)).
		Where("beneficiary_id = ?", beneficiaryID).
		Order("created_at ASC").Limit(1).
		Pluck("beneficiary_code", &codes).Error
	if err != nil {
		return "", false, apperr.Store("lookup redemption code", err)
	}
	if len(codes) == 0 || codes[0] == "" {
		return "", false, nil
	}
	return codes[0], true, nil
}

func codeTaken(tx *gorm.DB, code string, beneficiaryID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&Delivery{}).
		Where("beneficiary_code = ? AND beneficiary_id <> ?", code, beneficiaryID).
		Count(&count).Error
	if err != nil {
		return false, apperr.Store("check redemption code", err)
	}
	return count > 0, nil
}

// mint builds qr_<base36 unix millis><random suffix>.
func (a *CodeAllocator) mint() (string, error) {
	suffix, err := a.suffix()
	if err != nil {
		return "", err
	}
	return codePrefix + strconv.FormatInt(a.now().UnixMilli(), 36) + suffix, nil
}

func randomSuffix() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, codeSuffixLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
