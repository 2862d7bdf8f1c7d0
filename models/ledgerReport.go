package models

import (
	"context"
	"sort"
	"time"

	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportFilter narrows ledger aggregates to posted lines. From and To are inclusive days.
type ReportFilter struct {
	From         *time.Time `json:"from"`
	To           *time.Time `json:"to"`
	CostCenterId *int       `json:"cost_center_id"`
}

type TrialBalanceLine struct {
	AccountId     int             `json:"account_id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	AccountType   AccountType     `json:"account_type"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	BalanceDebit  decimal.Decimal `json:"balance_debit"`
	BalanceCredit decimal.Decimal `json:"balance_credit"`
}

type TrialBalance struct {
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
	IsBalanced  bool               `json:"is_balanced"`
}

type accountMovement struct {
	AccountId int
	VatRate   decimal.Decimal
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// postedItems selects posted journal lines matching the filter.
func postedItems(ctx context.Context, tx *gorm.DB, filter ReportFilter) *gorm.DB {
	q := tx.WithContext(ctx).
		Table("journal_items").
		Joins("JOIN journal_entries ON journal_entries.id = journal_items.journal_entry_id").
		Where("journal_entries.is_posted = ?", true)
	if filter.From != nil {
		q = q.Where("journal_entries.date >= ?", utils.TruncateDate(*filter.From))
	}
	if filter.To != nil {
		q = q.Where("journal_entries.date < ?", utils.TruncateDate(*filter.To).AddDate(0, 0, 1))
	}
	if filter.CostCenterId != nil {
		q = q.Where("journal_items.cost_center_id = ?", *filter.CostCenterId)
	}
	return q
}

// GetTrialBalance sums posted lines per account. Accounts without movement are left out.
// With a cost center filter the totals cover only that center's lines and need not balance.
func GetTrialBalance(ctx context.Context, tx *gorm.DB, filter ReportFilter) (*TrialBalance, error) {
	var movements []accountMovement
	err := postedItems(ctx, tx, filter).
		Select("journal_items.account_id AS account_id, COALESCE(SUM(journal_items.debit), 0) AS debit, COALESCE(SUM(journal_items.credit), 0) AS credit").
		Group("journal_items.account_id").
		Scan(&movements).Error
	if err != nil {
		return nil, err
	}

	report := &TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	if len(movements) > 0 {
		ids := make([]int, 0, len(movements))
		for _, m := range movements {
			ids = append(ids, m.AccountId)
		}
		var accounts []Account
		if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&accounts).Error; err != nil {
			return nil, err
		}
		byId := make(map[int]*Account, len(accounts))
		for i := range accounts {
			byId[accounts[i].ID] = &accounts[i]
		}

		for _, m := range movements {
			account, ok := byId[m.AccountId]
			if !ok {
				continue
			}
			line := TrialBalanceLine{
				AccountId:     account.ID,
				Code:          account.Code,
				Name:          account.Name,
				AccountType:   account.AccountType,
				Debit:         m.Debit,
				Credit:        m.Credit,
				BalanceDebit:  decimal.Zero,
				BalanceCredit: decimal.Zero,
			}
			net := m.Debit.Sub(m.Credit)
			if net.IsPositive() {
				line.BalanceDebit = net
			} else {
				line.BalanceCredit = net.Neg()
			}
			report.Lines = append(report.Lines, line)
			report.TotalDebit = report.TotalDebit.Add(line.BalanceDebit)
			report.TotalCredit = report.TotalCredit.Add(line.BalanceCredit)
		}
	}
	sort.Slice(report.Lines, func(i, j int) bool { return report.Lines[i].Code < report.Lines[j].Code })
	report.IsBalanced = report.TotalDebit.Equal(report.TotalCredit)
	return report, nil
}

type VatRateLine struct {
	Rate   decimal.Decimal `json:"rate"`
	Input  decimal.Decimal `json:"input"`
	Output decimal.Decimal `json:"output"`
}

// VatSummary is the VAT collected on sales (output) against the VAT paid on purchases and expenses (input).
type VatSummary struct {
	InputAccountId  *int            `json:"input_account_id"`
	OutputAccountId *int            `json:"output_account_id"`
	TotalInput      decimal.Decimal `json:"total_input"`
	TotalOutput     decimal.Decimal `json:"total_output"`
	NetPayable      decimal.Decimal `json:"net_payable"`
	ByRate          []VatRateLine   `json:"by_rate"`
}

// GetVatSummary nets the posted lines of the settings' VAT input and output accounts,
// split by the rate recorded on each line.
func GetVatSummary(ctx context.Context, tx *gorm.DB, filter ReportFilter) (*VatSummary, error) {
	settings, err := GetSystemSettings(ctx, tx)
	if err != nil {
		return nil, err
	}
	summary := &VatSummary{
		InputAccountId:  settings.VatInputAccountId,
		OutputAccountId: settings.VatOutputAccountId,
		TotalInput:      decimal.Zero,
		TotalOutput:     decimal.Zero,
		NetPayable:      decimal.Zero,
	}
	ids := make([]int, 0, 2)
	for _, id := range []*int{settings.VatInputAccountId, settings.VatOutputAccountId} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	if len(ids) == 0 {
		return summary, nil
	}

	var movements []accountMovement
	err = postedItems(ctx, tx, filter).
		Select("journal_items.account_id AS account_id, journal_items.vat_rate AS vat_rate, COALESCE(SUM(journal_items.debit), 0) AS debit, COALESCE(SUM(journal_items.credit), 0) AS credit").
		Where("journal_items.account_id IN ?", ids).
		Group("journal_items.account_id, journal_items.vat_rate").
		Scan(&movements).Error
	if err != nil {
		return nil, err
	}

	rates := make(map[string]*VatRateLine)
	rateLine := func(rate decimal.Decimal) *VatRateLine {
		key := rate.StringFixed(4)
		line, ok := rates[key]
		if !ok {
			line = &VatRateLine{Rate: rate, Input: decimal.Zero, Output: decimal.Zero}
			rates[key] = line
		}
		return line
	}
	for _, m := range movements {
		line := rateLine(m.VatRate)
		if settings.VatInputAccountId != nil && m.AccountId == *settings.VatInputAccountId {
			amount := m.Debit.Sub(m.Credit)
			line.Input = line.Input.Add(amount)
			summary.TotalInput = summary.TotalInput.Add(amount)
		} else {
			amount := m.Credit.Sub(m.Debit)
			line.Output = line.Output.Add(amount)
			summary.TotalOutput = summary.TotalOutput.Add(amount)
		}
	}
	for _, line := range rates {
		summary.ByRate = append(summary.ByRate, *line)
	}
	sort.Slice(summary.ByRate, func(i, j int) bool { return summary.ByRate[i].Rate.LessThan(summary.ByRate[j].Rate) })
	summary.NetPayable = summary.TotalOutput.Sub(summary.TotalInput)
	return summary, nil
}
