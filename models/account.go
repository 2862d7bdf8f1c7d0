package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Account struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Code         string          `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name         string          `gorm:"size:200;not null" json:"name"`
	AccountType  AccountType     `gorm:"size:20;index;not null" json:"account_type"`
	ParentId     *int            `gorm:"index" json:"parent_id"`
	IsSelectable *bool           `gorm:"not null;default:true" json:"is_selectable"`
	IsActive     *bool           `gorm:"not null;default:true" json:"is_active"`
	Balance      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`
	Description  string          `gorm:"type:text" json:"description"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccount struct {
	Code         string      `json:"code" validate:"required,max=50"`
	Name         string      `json:"name" validate:"required,max=200"`
	AccountType  AccountType `json:"account_type" validate:"required,oneof=asset liability equity income expense"`
	ParentId     *int        `json:"parent_id"`
	IsSelectable *bool       `json:"is_selectable"`
	Description  string      `json:"description"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewAccount) validate(ctx context.Context, tx *gorm.DB, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if err := utils.ValidateUnique[Account](ctx, tx, "code", input.Code, id); err != nil {
		return err
	}
	if input.ParentId != nil {
		if id > 0 && *input.ParentId == id {
			return errors.New("self-parent not allowed")
		}
		parent, err := utils.FetchModel[Account](ctx, tx, *input.ParentId)
		if err != nil {
			return errors.New("parent not found")
		}
		if !strings.HasPrefix(input.Code, parent.Code) {
			return fmt.Errorf("account code %s must start with parent code %s", input.Code, parent.Code)
		}
	}
	return nil
}

// IsPostable reports whether journal lines may hit the account.
func (a *Account) IsPostable() bool {
	return utils.DereferencePtr(a.IsSelectable, true) && utils.DereferencePtr(a.IsActive, true)
}

// BalanceEffect is the signed change a line of debit/credit makes to the account balance.
func (a *Account) BalanceEffect(debit, credit decimal.Decimal) decimal.Decimal {
	if a.AccountType.IsDebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

func CreateAccount(ctx context.Context, tx *gorm.DB, input *NewAccount) (*Account, error) {
	if err := input.validate(ctx, tx, 0); err != nil {
		return nil, err
	}

	account := Account{
		Code:         input.Code,
		Name:         input.Name,
		AccountType:  input.AccountType,
		ParentId:     input.ParentId,
		IsSelectable: input.IsSelectable,
		IsActive:     utils.NewTrue(),
		Balance:      decimal.Zero,
		Description:  input.Description,
	}
	if account.IsSelectable == nil {
		account.IsSelectable = utils.NewTrue()
	}
	if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateAccount never touches the balance; the type is frozen once lines exist.
func UpdateAccount(ctx context.Context, tx *gorm.DB, id int, input *NewAccount) (*Account, error) {
	if err := input.validate(ctx, tx, id); err != nil {
		return nil, err
	}
	account, err := utils.FetchModelForUpdate[Account](ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if account.AccountType != input.AccountType {
		used, err := accountHasLines(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, errors.New("account type cannot change after journal lines exist")
		}
	}
	if input.IsSelectable != nil && !*input.IsSelectable {
		used, err := accountHasLines(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, errors.New("account with journal lines must stay selectable")
		}
	}

	updates := map[string]interface{}{
		"code":         input.Code,
		"name":         input.Name,
		"account_type": input.AccountType,
		"parent_id":    input.ParentId,
		"description":  input.Description,
	}
	if input.IsSelectable != nil {
		updates["is_selectable"] = *input.IsSelectable
	}
	if err := tx.WithContext(ctx).Model(account).Updates(updates).Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[Account](ctx, tx, id)
}

func DeleteAccount(ctx context.Context, tx *gorm.DB, id int) error {
	if _, err := utils.FetchModelForUpdate[Account](ctx, tx, id); err != nil {
		return err
	}
	children, err := utils.ResourceCountWhere[Account](ctx, tx, "parent_id = ?", id)
	if err != nil {
		return err
	}
	if children > 0 {
		return errors.New("account has sub-accounts")
	}
	used, err := accountHasLines(ctx, tx, id)
	if err != nil {
		return err
	}
	if used {
		return errors.New("account has journal lines")
	}
	if owner, err := findAccountOwner(ctx, tx, id); err != nil {
		return err
	} else if owner != "" {
		return fmt.Errorf("account is linked to %s", owner)
	}
	return tx.WithContext(ctx).Delete(&Account{}, id).Error
}

func GetAccountByCode(ctx context.Context, tx *gorm.DB, code string) (*Account, error) {
	var account Account
	if err := tx.WithContext(ctx).Where("code = ?", code).First(&account).Error; err != nil {
		if utils.IsRecordNotFound(err) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ResolveAccount loads an optional account link; a nil id resolves to nil.
func ResolveAccount(ctx context.Context, tx *gorm.DB, id *int) (*Account, error) {
	if id == nil || *id == 0 {
		return nil, nil
	}
	return utils.FetchModel[Account](ctx, tx, *id)
}

func accountHasLines(ctx context.Context, tx *gorm.DB, id int) (bool, error) {
	count, err := utils.ResourceCountWhere[JournalItem](ctx, tx, "account_id = ?", id)
	return count > 0, err
}

// ValidatePostableAccount is used for every account link that will receive journal lines.
func ValidatePostableAccount(ctx context.Context, tx *gorm.DB, id *int) error {
	if id == nil {
		return nil
	}
	account, err := utils.FetchModel[Account](ctx, tx, *id)
	if err != nil {
		return fmt.Errorf("account %d: %w", *id, err)
	}
	if !account.IsPostable() {
		return fmt.Errorf("account %s: %w", account.Code, ErrAccountNotPostable)
	}
	return nil
}

// lockAccounts takes row locks in ascending id order so concurrent postings never deadlock.
func lockAccounts(ctx context.Context, tx *gorm.DB, ids []int) (map[int]*Account, error) {
	ids = utils.UniqueSlice(ids)
	sort.Ints(ids)
	var accounts []*Account
	if len(ids) > 0 {
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).
			Order("id").
			Find(&accounts).Error; err != nil {
			return nil, err
		}
	}
	result := make(map[int]*Account, len(accounts))
	for _, a := range accounts {
		result[a.ID] = a
	}
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			return nil, fmt.Errorf("account %d: %w", id, utils.ErrorRecordNotFound)
		}
	}
	return result, nil
}

type AccountNode struct {
	Account         *Account        `json:"account"`
	Children        []*AccountNode  `json:"children"`
	RolledUpBalance decimal.Decimal `json:"rolled_up_balance"`
}

// GetAccountTree returns the chart of accounts as a forest ordered by code.
// Parents carry the sum of their own balance and their descendants'.
func GetAccountTree(ctx context.Context, tx *gorm.DB) ([]*AccountNode, error) {
	var accounts []*Account
	if err := tx.WithContext(ctx).Order("code").Find(&accounts).Error; err != nil {
		return nil, err
	}
	nodes := make(map[int]*AccountNode, len(accounts))
	for _, a := range accounts {
		nodes[a.ID] = &AccountNode{Account: a}
	}
	var roots []*AccountNode
	for _, a := range accounts {
		node := nodes[a.ID]
		if a.ParentId != nil {
			if parent, ok := nodes[*a.ParentId]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	for _, root := range roots {
		rollUp(root)
	}
	return roots, nil
}

func rollUp(node *AccountNode) decimal.Decimal {
	total := node.Account.Balance
	for _, child := range node.Children {
		total = total.Add(rollUp(child))
	}
	node.RolledUpBalance = total
	return total
}

type AccountBalanceDrift struct {
	AccountId int             `json:"account_id"`
	Code      string          `json:"code"`
	Stored    decimal.Decimal `json:"stored"`
	Computed  decimal.Decimal `json:"computed"`
}

type accountLineTotal struct {
	AccountId int
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// RebuildAccountBalances recomputes every balance from posted journal lines.
// With fix=false it only reports drift.
func RebuildAccountBalances(ctx context.Context, tx *gorm.DB, sinks *BalanceSinkRegistry, fix bool) ([]AccountBalanceDrift, error) {
	var totals []accountLineTotal
	if err := tx.WithContext(ctx).
		Table("journal_items").
		Select("journal_items.account_id AS account_id, SUM(journal_items.debit) AS debit, SUM(journal_items.credit) AS credit").
		Joins("JOIN journal_entries ON journal_entries.id = journal_items.journal_entry_id").
		Where("journal_entries.is_posted = ?", true).
		Group("journal_items.account_id").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	byAccount := make(map[int]accountLineTotal, len(totals))
	for _, t := range totals {
		byAccount[t.AccountId] = t
	}

	q := tx.WithContext(ctx)
	if fix {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var accounts []*Account
	if err := q.Order("id").Find(&accounts).Error; err != nil {
		return nil, err
	}

	var drifts []AccountBalanceDrift
	for _, a := range accounts {
		t := byAccount[a.ID]
		computed := a.BalanceEffect(t.Debit, t.Credit)
		if computed.Equal(a.Balance) {
			continue
		}
		drifts = append(drifts, AccountBalanceDrift{AccountId: a.ID, Code: a.Code, Stored: a.Balance, Computed: computed})
		if !fix {
			continue
		}
		a.Balance = computed
		if err := tx.WithContext(ctx).Model(a).UpdateColumn("balance", computed).Error; err != nil {
			return nil, err
		}
		if err := sinks.Propagate(ctx, tx, a); err != nil {
			return nil, err
		}
	}
	return drifts, nil
}
