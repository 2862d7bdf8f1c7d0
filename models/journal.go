package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JournalEntry struct {
	ID            int           `gorm:"primary_key" json:"id"`
	EntryNumber   string        `gorm:"size:100;uniqueIndex;not null" json:"entry_number"`
	Date          time.Time     `gorm:"not null;index" json:"date"`
	Description   string        `gorm:"type:text" json:"description"`
	Reference     string        `gorm:"size:100" json:"reference"`
	ReferenceType DocumentType  `gorm:"size:40;index:idx_journal_reference" json:"reference_type"`
	ReferenceId   int           `gorm:"index:idx_journal_reference" json:"reference_id"`
	IsPosted      bool          `gorm:"not null;default:false;index" json:"is_posted"`
	PostedAt      *time.Time    `json:"posted_at"`
	CreatedBy     *int          `json:"created_by"`
	Items         []JournalItem `gorm:"foreignKey:JournalEntryId" json:"items"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type JournalItem struct {
	ID             int             `gorm:"primary_key" json:"id"`
	JournalEntryId int             `gorm:"index;not null" json:"journal_entry_id"`
	AccountId      int             `gorm:"index;not null" json:"account_id"`
	Debit          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"debit"`
	Credit         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit"`
	CostCenterId   *int            `gorm:"index" json:"cost_center_id"`
	Description    string          `gorm:"size:255" json:"description"`
	VatAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"vat_amount"`
	VatRate        decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"vat_rate"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewJournalItem struct {
	AccountId    int             `json:"account_id" validate:"required"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	CostCenterId *int            `json:"cost_center_id"`
	Description  string          `json:"description" validate:"max=255"`
	VatAmount    decimal.Decimal `json:"vat_amount"`
	VatRate      decimal.Decimal `json:"vat_rate"`
}

type NewJournalEntry struct {
	EntryNumber   string           `json:"entry_number" validate:"required,max=100"`
	Date          time.Time        `json:"date" validate:"required"`
	Description   string           `json:"description"`
	Reference     string           `json:"reference" validate:"max=100"`
	ReferenceType DocumentType     `json:"reference_type"`
	ReferenceId   int              `json:"reference_id"`
	Items         []NewJournalItem `json:"items" validate:"dive"`
}

/* immutability hooks, for code paths that save models directly */

func (e *JournalEntry) BeforeUpdate(tx *gorm.DB) error {
	if e.ID > 0 && e.IsPosted {
		return ErrPostedEntryImmutable
	}
	return nil
}

func (e *JournalEntry) BeforeDelete(tx *gorm.DB) error {
	if e.ID == 0 {
		return nil
	}
	if e.IsPosted {
		return ErrPostedEntryImmutable
	}
	// period lock is checked by lockDraftEntry before the delete is issued
	return nil
}

func (item *JournalItem) BeforeCreate(tx *gorm.DB) error {
	return item.guardEntry(tx)
}

func (item *JournalItem) BeforeUpdate(tx *gorm.DB) error {
	return item.guardEntry(tx)
}

func (item *JournalItem) BeforeDelete(tx *gorm.DB) error {
	return item.guardEntry(tx)
}

// batch statements pass a zero item and are guarded by their callers
func (item *JournalItem) guardEntry(tx *gorm.DB) error {
	if item.JournalEntryId == 0 {
		return nil
	}
	var entry JournalEntry
	err := tx.Session(&gorm.Session{NewDB: true}).
		Model(&JournalEntry{}).
		Select("id", "is_posted").
		First(&entry, item.JournalEntryId).Error
	if err != nil {
		if utils.IsRecordNotFound(err) {
			return nil
		}
		return err
	}
	if entry.IsPosted {
		return ErrPostedEntryImmutable
	}
	return nil
}

// Totals sums the loaded items.
func (e *JournalEntry) Totals() (debit decimal.Decimal, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, item := range e.Items {
		debit = debit.Add(item.Debit)
		credit = credit.Add(item.Credit)
	}
	return debit, credit
}

func (e *JournalEntry) IsBalanced() bool {
	debit, credit := e.Totals()
	return len(e.Items) > 0 && debit.Equal(credit)
}

func (e *JournalEntry) CheckTransactionLock(ctx context.Context, tx *gorm.DB) error {
	return CheckPeriodLock(ctx, tx, e.Date)
}

func (input *NewJournalItem) validate(ctx context.Context, tx *gorm.DB) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Debit.IsNegative() || input.Credit.IsNegative() {
		return ErrInvalidJournalLine
	}
	if input.Debit.IsPositive() == input.Credit.IsPositive() {
		return ErrInvalidJournalLine
	}
	if err := ValidatePostableAccount(ctx, tx, &input.AccountId); err != nil {
		return err
	}
	if err := utils.ValidateOptionalResourceId[CostCenter](ctx, tx, input.CostCenterId, "cost center"); err != nil {
		return err
	}
	return nil
}

func (input *NewJournalItem) model(entryId int) JournalItem {
	return JournalItem{
		JournalEntryId: entryId,
		AccountId:      input.AccountId,
		Debit:          input.Debit,
		Credit:         input.Credit,
		CostCenterId:   input.CostCenterId,
		Description:    input.Description,
		VatAmount:      input.VatAmount,
		VatRate:        input.VatRate,
	}
}

// CreateJournalEntry stores a draft entry. Posting is a separate step.
func CreateJournalEntry(ctx context.Context, tx *gorm.DB, input *NewJournalEntry) (*JournalEntry, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := CheckPeriodLock(ctx, tx, input.Date); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[JournalEntry](ctx, tx, "entry_number", input.EntryNumber, 0); err != nil {
		return nil, err
	}
	for i := range input.Items {
		if err := input.Items[i].validate(ctx, tx); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}

	entry := JournalEntry{
		EntryNumber:   input.EntryNumber,
		Date:          input.Date.UTC(),
		Description:   input.Description,
		Reference:     input.Reference,
		ReferenceType: input.ReferenceType,
		ReferenceId:   input.ReferenceId,
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		entry.CreatedBy = &userId
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(&entry).Error; err != nil {
		return nil, err
	}
	if len(input.Items) > 0 {
		items := make([]JournalItem, 0, len(input.Items))
		for i := range input.Items {
			items = append(items, input.Items[i].model(entry.ID))
		}
		if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
			return nil, err
		}
		entry.Items = items
	}
	return &entry, nil
}

func GetJournalEntry(ctx context.Context, tx *gorm.DB, id int) (*JournalEntry, error) {
	return utils.FetchModel[JournalEntry](ctx, tx, id, "Items")
}

// lockDraftEntry loads the entry for a line mutation and rejects posted or locked entries.
func lockDraftEntry(ctx context.Context, tx *gorm.DB, entryId int) (*JournalEntry, error) {
	entry, err := utils.FetchModelForUpdate[JournalEntry](ctx, tx, entryId)
	if err != nil {
		return nil, err
	}
	if entry.IsPosted {
		return nil, ErrPostedEntryImmutable
	}
	if err := entry.CheckTransactionLock(ctx, tx); err != nil {
		return nil, err
	}
	return entry, nil
}

func AddJournalItem(ctx context.Context, tx *gorm.DB, entryId int, input *NewJournalItem) (*JournalItem, error) {
	if _, err := lockDraftEntry(ctx, tx, entryId); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, tx); err != nil {
		return nil, err
	}
	item := input.model(entryId)
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func UpdateJournalItem(ctx context.Context, tx *gorm.DB, itemId int, input *NewJournalItem) (*JournalItem, error) {
	item, err := utils.FetchModel[JournalItem](ctx, tx, itemId)
	if err != nil {
		return nil, err
	}
	if _, err := lockDraftEntry(ctx, tx, item.JournalEntryId); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(item).Updates(map[string]interface{}{
		"account_id":     input.AccountId,
		"debit":          input.Debit,
		"credit":         input.Credit,
		"cost_center_id": input.CostCenterId,
		"description":    input.Description,
		"vat_amount":     input.VatAmount,
		"vat_rate":       input.VatRate,
	}).Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[JournalItem](ctx, tx, itemId)
}

func DeleteJournalItem(ctx context.Context, tx *gorm.DB, itemId int) error {
	item, err := utils.FetchModel[JournalItem](ctx, tx, itemId)
	if err != nil {
		return err
	}
	if _, err := lockDraftEntry(ctx, tx, item.JournalEntryId); err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(item).Error
}

// DeleteJournalEntry removes a draft entry and its items.
func DeleteJournalEntry(ctx context.Context, tx *gorm.DB, entryId int) error {
	entry, err := lockDraftEntry(ctx, tx, entryId)
	if err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Where("journal_entry_id = ?", entryId).Delete(&JournalItem{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(entry).Error
}

func FindJournalEntriesByReference(ctx context.Context, tx *gorm.DB, refType DocumentType, refId int) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := tx.WithContext(ctx).
		Preload("Items").
		Where("reference_type = ? AND reference_id = ?", refType, refId).
		Order("id").
		Find(&entries).Error
	return entries, err
}

// EntryNumberFor builds the number of a generated entry, e.g. INV-12-20240131150405.
func EntryNumberFor(prefix string, documentId int, at time.Time) string {
	return fmt.Sprintf("%s-%d-%s", prefix, documentId, at.UTC().Format("20060102150405"))
}

// UnbalancedPostedEntries returns ids of posted entries whose lines do not balance. Always empty on a healthy ledger.
func UnbalancedPostedEntries(ctx context.Context, tx *gorm.DB) ([]int, error) {
	type row struct {
		Id     int
		Debit  decimal.Decimal
		Credit decimal.Decimal
		Lines  int
	}
	var rows []row
	err := tx.WithContext(ctx).
		Table("journal_entries").
		Select("journal_entries.id AS id, COALESCE(SUM(journal_items.debit), 0) AS debit, COALESCE(SUM(journal_items.credit), 0) AS credit, COUNT(journal_items.id) AS lines").
		Joins("LEFT JOIN journal_items ON journal_items.journal_entry_id = journal_entries.id").
		Where("journal_entries.is_posted = ?", true).
		Group("journal_entries.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, r := range rows {
		if r.Lines == 0 || !r.Debit.Equal(r.Credit) {
			ids = append(ids, r.Id)
		}
	}
	return ids, nil
}
