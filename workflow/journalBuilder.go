package workflow

import (
	"fmt"
	"strings"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// journalDraft collects the lines of a generated entry. Lines whose account link
// is missing are remembered by label instead of being added.
type journalDraft struct {
	Description string
	Reference   string
	// EntryNumber overrides the generated <prefix>-<id>-<timestamp> number.
	EntryNumber string

	lines   []models.NewJournalItem
	missing []string
}

type lineOption func(*models.NewJournalItem)

func withCostCenter(id *int) lineOption {
	return func(item *models.NewJournalItem) {
		item.CostCenterId = id
	}
}

func withVat(amount decimal.Decimal, rate decimal.Decimal) lineOption {
	return func(item *models.NewJournalItem) {
		item.VatAmount = amount
		item.VatRate = rate
	}
}

func (d *journalDraft) Debit(account *models.Account, amount decimal.Decimal, label string, opts ...lineOption) {
	d.add(account, amount, true, label, opts)
}

func (d *journalDraft) Credit(account *models.Account, amount decimal.Decimal, label string, opts ...lineOption) {
	d.add(account, amount, false, label, opts)
}

// add drops zero amounts and turns a negative amount into the opposite side.
func (d *journalDraft) add(account *models.Account, amount decimal.Decimal, debit bool, label string, opts []lineOption) {
	amount = utils.RoundMoney(amount)
	if amount.IsZero() {
		return
	}
	if amount.IsNegative() {
		amount = amount.Neg()
		debit = !debit
	}
	if account == nil {
		d.missing = append(d.missing, label)
		return
	}

	item := models.NewJournalItem{
		AccountId:   account.ID,
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
		Description: label,
	}
	if debit {
		item.Debit = amount
	} else {
		item.Credit = amount
	}
	for _, opt := range opts {
		opt(&item)
	}
	d.lines = append(d.lines, item)
}

func (d *journalDraft) Totals() (debit decimal.Decimal, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range d.lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

func (d *journalDraft) Balanced() bool {
	debit, credit := d.Totals()
	return debit.Equal(credit)
}

// commitJournal stores the collected lines as an entry referencing the document and posts it.
//
// Missing account links fail the run in strict mode and are logged otherwise.
// Fewer than two lines produce no entry; an unbalanced set of lines is kept as a draft entry.
func (r *postingRun) commitJournal() (*int, error) {
	d := &r.journal
	logData := map[string]interface{}{
		"document_type": r.docType,
		"document_id":   r.docId,
	}
	if len(d.missing) > 0 {
		if r.poster.Strict {
			return nil, fmt.Errorf("%s %d: %s: %w", r.docType, r.docId, strings.Join(d.missing, ", "), models.ErrMissingLedgerLink)
		}
		logData["skipped_lines"] = d.missing
		config.LogWarning(r.poster.Logger, "journalBuilder.go", "commitJournal", "journal lines skipped: missing account link", logData)
	}
	if len(d.lines) < 2 {
		if len(d.lines) == 1 {
			config.LogWarning(r.poster.Logger, "journalBuilder.go", "commitJournal", "single journal line dropped", logData)
		}
		return nil, nil
	}

	number := d.EntryNumber
	if number == "" {
		number = models.EntryNumberFor(r.prefix, r.docId, r.poster.now())
	}
	entry, err := models.CreateJournalEntry(r.ctx, r.tx, &models.NewJournalEntry{
		EntryNumber:   number,
		Date:          r.date,
		Description:   d.Description,
		Reference:     d.Reference,
		ReferenceType: r.docType,
		ReferenceId:   r.docId,
		Items:         d.lines,
	})
	if err != nil {
		config.LogError(r.poster.Logger, "journalBuilder.go", "commitJournal", "CreateJournalEntry", logData, err)
		return nil, err
	}

	if !d.Balanced() {
		debit, credit := d.Totals()
		logData["entry_id"] = entry.ID
		logData["debit"] = debit.StringFixed(2)
		logData["credit"] = credit.StringFixed(2)
		config.LogWarning(r.poster.Logger, "journalBuilder.go", "commitJournal", "unbalanced journal kept as draft", logData)
		return &entry.ID, nil
	}
	if _, err := r.poster.Engine.Post(r.ctx, r.tx, entry.ID); err != nil {
		config.LogError(r.poster.Logger, "journalBuilder.go", "commitJournal", "JournalEngine.Post", logData, err)
		return nil, err
	}
	return &entry.ID, nil
}
