package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

type CashOwnerKind string

const (
	CashOwnerSafe CashOwnerKind = "safe"
	CashOwnerBank CashOwnerKind = "bank"
)

var ErrCashOwnerRequired = errors.New("exactly one of safe or bank is required")

// CashOwner is the safe or bank a document moves money through.
type CashOwner struct {
	Kind      CashOwnerKind
	Id        int
	Name      string
	AccountId *int
}

// LoadCashOwner resolves a (safe, bank) pair where exactly one side is set.
func LoadCashOwner(ctx context.Context, tx *gorm.DB, safeId *int, bankId *int) (*CashOwner, error) {
	if (safeId == nil) == (bankId == nil) {
		return nil, ErrCashOwnerRequired
	}
	if safeId != nil {
		safe, err := utils.FetchModel[Safe](ctx, tx, *safeId)
		if err != nil {
			return nil, fmt.Errorf("safe %d: %w", *safeId, err)
		}
		return &CashOwner{Kind: CashOwnerSafe, Id: safe.ID, Name: safe.Name, AccountId: safe.AccountId}, nil
	}
	bank, err := utils.FetchModel[Bank](ctx, tx, *bankId)
	if err != nil {
		return nil, fmt.Errorf("bank %d: %w", *bankId, err)
	}
	return &CashOwner{Kind: CashOwnerBank, Id: bank.ID, Name: bank.Name, AccountId: bank.AccountId}, nil
}

// OptionalCashOwner is nil when neither side is set.
func OptionalCashOwner(ctx context.Context, tx *gorm.DB, safeId *int, bankId *int) (*CashOwner, error) {
	if safeId == nil && bankId == nil {
		return nil, nil
	}
	return LoadCashOwner(ctx, tx, safeId, bankId)
}

func (o *CashOwner) Ref() (safeId *int, bankId *int) {
	id := o.Id
	if o.Kind == CashOwnerSafe {
		return &id, nil
	}
	return nil, &id
}

func (o *CashOwner) Same(other *CashOwner) bool {
	return o != nil && other != nil && o.Kind == other.Kind && o.Id == other.Id
}

func (o *CashOwner) Account(ctx context.Context, tx *gorm.DB) (*Account, error) {
	return ResolveAccount(ctx, tx, o.AccountId)
}

func (o *CashOwner) Lock(ctx context.Context, tx *gorm.DB) error {
	if o.Kind == CashOwnerSafe {
		return lockChainOwner[Safe](ctx, tx, o.Id)
	}
	return lockChainOwner[Bank](ctx, tx, o.Id)
}

func (o *CashOwner) Recalculate(ctx context.Context, tx *gorm.DB) error {
	var err error
	if o.Kind == CashOwnerSafe {
		_, err = RecalculateSafeBalance(ctx, tx, o.Id)
	} else {
		_, err = RecalculateBankBalance(ctx, tx, o.Id)
	}
	return err
}
