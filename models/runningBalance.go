package models

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChainRow is a subsidiary ledger row carrying its running balance.
type ChainRow interface {
	GetId() int
	GetBalanceBefore() decimal.Decimal
	GetBalanceAfter() decimal.Decimal
	SetBalances(before, after decimal.Decimal)
}

// RecalculateChain rewrites balance_before/balance_after for every row of one owner,
// ordered by transaction_date then id, starting from opening. It returns the closing balance.
// Callers must hold the owner's row lock. The rows are read with a locking read so
// the chain includes every committed row, whatever snapshot the transaction holds.
func RecalculateChain[T any, PT interface {
	*T
	ChainRow
}](ctx context.Context, tx *gorm.DB, ownerColumn string, ownerId int, opening decimal.Decimal, effect func(PT) decimal.Decimal) (decimal.Decimal, error) {
	var rows []T
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(ownerColumn+" = ?", ownerId).
		Order("transaction_date ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return decimal.Zero, err
	}

	running := opening
	for i := range rows {
		row := PT(&rows[i])
		before := running
		after := before.Add(effect(row))
		if !row.GetBalanceBefore().Equal(before) || !row.GetBalanceAfter().Equal(after) {
			if err := tx.WithContext(ctx).Model(row).UpdateColumns(map[string]interface{}{
				"balance_before": before,
				"balance_after":  after,
			}).Error; err != nil {
				return decimal.Zero, err
			}
			row.SetBalances(before, after)
		}
		running = after
	}
	return running, nil
}

type ChainBreak struct {
	OwnerType string          `json:"owner_type"`
	OwnerId   int             `json:"owner_id"`
	RowId     int             `json:"row_id"`
	Expected  decimal.Decimal `json:"expected"`
	Actual    decimal.Decimal `json:"actual"`
	Reason    string          `json:"reason"`
}

// VerifyChain checks the stored chain of one owner without writing.
func VerifyChain[T any, PT interface {
	*T
	ChainRow
}](ctx context.Context, tx *gorm.DB, ownerType string, ownerColumn string, ownerId int, opening decimal.Decimal, current decimal.Decimal, effect func(PT) decimal.Decimal) ([]ChainBreak, error) {
	var rows []T
	if err := tx.WithContext(ctx).
		Where(ownerColumn+" = ?", ownerId).
		Order("transaction_date ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	var breaks []ChainBreak
	running := opening
	for i := range rows {
		row := PT(&rows[i])
		if !row.GetBalanceBefore().Equal(running) {
			breaks = append(breaks, ChainBreak{ownerType, ownerId, row.GetId(), running, row.GetBalanceBefore(), "balance_before"})
		}
		expectedAfter := running.Add(effect(row))
		if !row.GetBalanceAfter().Equal(expectedAfter) {
			breaks = append(breaks, ChainBreak{ownerType, ownerId, row.GetId(), expectedAfter, row.GetBalanceAfter(), "balance_after"})
		}
		running = expectedAfter
	}
	if !current.Equal(running) {
		breaks = append(breaks, ChainBreak{ownerType, ownerId, 0, running, current, "current_balance"})
	}
	return breaks, nil
}

// lockChainOwner takes the owner's row lock before its chain is changed.
func lockChainOwner[T any](ctx context.Context, tx *gorm.DB, id int) error {
	_, err := utils.FetchModelForUpdate[T](ctx, tx, id)
	return err
}

func safeEffect(row *SafeTransaction) decimal.Decimal {
	return row.Amount.Mul(decimal.NewFromInt(row.TransactionType.Sign()))
}

func contactEffect(contactType ContactType) func(*ContactTransaction) decimal.Decimal {
	return func(row *ContactTransaction) decimal.Decimal {
		return row.Amount.Mul(decimal.NewFromInt(row.TransactionType.Sign(contactType)))
	}
}

func productEffect(row *ProductTransaction) decimal.Decimal {
	if row.TransactionType == ProductTransactionAdjustment {
		return row.BaseQuantity
	}
	return row.BaseQuantity.Mul(decimal.NewFromInt(row.TransactionType.Sign()))
}

func RecalculateSafeBalance(ctx context.Context, tx *gorm.DB, safeId int) (decimal.Decimal, error) {
	safe, err := utils.FetchModelForUpdate[Safe](ctx, tx, safeId)
	if err != nil {
		return decimal.Zero, fmt.Errorf("safe %d: %w", safeId, err)
	}
	closing, err := RecalculateChain[SafeTransaction](ctx, tx, "safe_id", safeId, safe.InitialBalance, safeEffect)
	if err != nil {
		return decimal.Zero, err
	}
	return closing, tx.WithContext(ctx).Model(safe).UpdateColumn("current_balance", closing).Error
}

func RecalculateBankBalance(ctx context.Context, tx *gorm.DB, bankId int) (decimal.Decimal, error) {
	bank, err := utils.FetchModelForUpdate[Bank](ctx, tx, bankId)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bank %d: %w", bankId, err)
	}
	closing, err := RecalculateChain[SafeTransaction](ctx, tx, "bank_id", bankId, bank.InitialBalance, safeEffect)
	if err != nil {
		return decimal.Zero, err
	}
	return closing, tx.WithContext(ctx).Model(bank).UpdateColumn("current_balance", closing).Error
}

func RecalculateContactBalance(ctx context.Context, tx *gorm.DB, contactId int) (decimal.Decimal, error) {
	contact, err := utils.FetchModelForUpdate[Contact](ctx, tx, contactId)
	if err != nil {
		return decimal.Zero, fmt.Errorf("contact %d: %w", contactId, err)
	}
	closing, err := RecalculateChain[ContactTransaction](ctx, tx, "contact_id", contactId, contact.OpeningChainBalance(), contactEffect(contact.ContactType))
	if err != nil {
		return decimal.Zero, err
	}
	return closing, tx.WithContext(ctx).Model(contact).UpdateColumn("current_balance", closing).Error
}

func RecalculateProductBalance(ctx context.Context, tx *gorm.DB, productId int) (decimal.Decimal, error) {
	product, err := utils.FetchModelForUpdate[Product](ctx, tx, productId)
	if err != nil {
		return decimal.Zero, fmt.Errorf("product %d: %w", productId, err)
	}
	closing, err := RecalculateChain[ProductTransaction](ctx, tx, "product_id", productId, product.InitialBalance, productEffect)
	if err != nil {
		return decimal.Zero, err
	}
	return closing, tx.WithContext(ctx).Model(product).UpdateColumn("current_balance", closing).Error
}

// RecalculateAllSubsidiaryLedgers rebuilds every chain. Used by maintenance tooling.
func RecalculateAllSubsidiaryLedgers(ctx context.Context, tx *gorm.DB) error {
	type step struct {
		model interface{}
		fn    func(context.Context, *gorm.DB, int) (decimal.Decimal, error)
	}
	for _, s := range []step{
		{&Safe{}, RecalculateSafeBalance},
		{&Bank{}, RecalculateBankBalance},
		{&Contact{}, RecalculateContactBalance},
		{&Product{}, RecalculateProductBalance},
	} {
		var ids []int
		if err := tx.WithContext(ctx).Model(s.model).Order("id").Pluck("id", &ids).Error; err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := s.fn(ctx, tx, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// VerifySubsidiaryLedgers reports every chain break across safes, banks, contacts and products.
func VerifySubsidiaryLedgers(ctx context.Context, tx *gorm.DB) ([]ChainBreak, error) {
	var breaks []ChainBreak

	var safes []Safe
	if err := tx.WithContext(ctx).Order("id").Find(&safes).Error; err != nil {
		return nil, err
	}
	for _, s := range safes {
		b, err := VerifyChain[SafeTransaction](ctx, tx, "safe", "safe_id", s.ID, s.InitialBalance, s.CurrentBalance, safeEffect)
		if err != nil {
			return nil, err
		}
		breaks = append(breaks, b...)
	}

	var banks []Bank
	if err := tx.WithContext(ctx).Order("id").Find(&banks).Error; err != nil {
		return nil, err
	}
	for _, bank := range banks {
		b, err := VerifyChain[SafeTransaction](ctx, tx, "bank", "bank_id", bank.ID, bank.InitialBalance, bank.CurrentBalance, safeEffect)
		if err != nil {
			return nil, err
		}
		breaks = append(breaks, b...)
	}

	var contacts []Contact
	if err := tx.WithContext(ctx).Order("id").Find(&contacts).Error; err != nil {
		return nil, err
	}
	for _, c := range contacts {
		b, err := VerifyChain[ContactTransaction](ctx, tx, "contact", "contact_id", c.ID, c.OpeningChainBalance(), c.CurrentBalance, contactEffect(c.ContactType))
		if err != nil {
			return nil, err
		}
		breaks = append(breaks, b...)
	}

	var products []Product
	if err := tx.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		b, err := VerifyChain[ProductTransaction](ctx, tx, "product", "product_id", p.ID, p.InitialBalance, p.CurrentBalance, productEffect)
		if err != nil {
			return nil, err
		}
		breaks = append(breaks, b...)
	}
	return breaks, nil
}
