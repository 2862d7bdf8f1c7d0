package models

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// BalanceSink mirrors an account balance onto the entity linked 1:1 to that account.
type BalanceSink interface {
	Name() string
	SyncAccountBalance(ctx context.Context, tx *gorm.DB, account *Account) error
}

// LinkedBalanceSink updates ledger_balance on every T whose account_id is the account.
type LinkedBalanceSink[T any] struct {
	Label string
}

func (s LinkedBalanceSink[T]) Name() string {
	return s.Label
}

func (s LinkedBalanceSink[T]) SyncAccountBalance(ctx context.Context, tx *gorm.DB, account *Account) error {
	return tx.WithContext(ctx).
		Model(new(T)).
		Where("account_id = ?", account.ID).
		UpdateColumn("ledger_balance", account.Balance).Error
}

type BalanceSinkRegistry struct {
	sinks []BalanceSink
}

func NewBalanceSinkRegistry(sinks ...BalanceSink) *BalanceSinkRegistry {
	return &BalanceSinkRegistry{sinks: sinks}
}

// DefaultBalanceSinks registers the safe, bank and contact mirrors.
func DefaultBalanceSinks() *BalanceSinkRegistry {
	return NewBalanceSinkRegistry(
		LinkedBalanceSink[Safe]{Label: "safe"},
		LinkedBalanceSink[Bank]{Label: "bank"},
		LinkedBalanceSink[Contact]{Label: "contact"},
	)
}

func (r *BalanceSinkRegistry) Register(sink BalanceSink) {
	r.sinks = append(r.sinks, sink)
}

func (r *BalanceSinkRegistry) Sinks() []BalanceSink {
	if r == nil {
		return nil
	}
	return r.sinks
}

// Propagate is a no-op on a nil registry.
func (r *BalanceSinkRegistry) Propagate(ctx context.Context, tx *gorm.DB, account *Account) error {
	if r == nil {
		return nil
	}
	for _, sink := range r.sinks {
		if err := sink.SyncAccountBalance(ctx, tx, account); err != nil {
			return fmt.Errorf("sync %s balance for account %s: %w", sink.Name(), account.Code, err)
		}
	}
	return nil
}

type accountLink struct {
	label string
	model interface{}
}

var accountLinks = []accountLink{
	{"safe", &Safe{}},
	{"bank", &Bank{}},
	{"contact", &Contact{}},
	{"store", &Store{}},
}

// findAccountOwner returns the label of the entity already linked to the account ("" if none).
func findAccountOwner(ctx context.Context, tx *gorm.DB, accountId int) (string, error) {
	for _, link := range accountLinks {
		var count int64
		if err := tx.WithContext(ctx).Model(link.model).Where("account_id = ?", accountId).Count(&count).Error; err != nil {
			return "", err
		}
		if count > 0 {
			return link.label, nil
		}
	}
	return "", nil
}

// validateAccountLink keeps the account <-> owner link 1:1 and postable.
// exceptLabel/exceptId skip the owner being updated.
func validateAccountLink(ctx context.Context, tx *gorm.DB, accountId *int, exceptLabel string, exceptId int) error {
	if accountId == nil {
		return nil
	}
	if err := ValidatePostableAccount(ctx, tx, accountId); err != nil {
		return err
	}
	for _, link := range accountLinks {
		q := tx.WithContext(ctx).Model(link.model).Where("account_id = ?", *accountId)
		if link.label == exceptLabel && exceptId > 0 {
			q = q.Where("id <> ?", exceptId)
		}
		var count int64
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("account %d is already linked to a %s", *accountId, link.label)
		}
	}
	return nil
}
