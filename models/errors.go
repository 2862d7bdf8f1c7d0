package models

import (
	"context"
	"errors"

	"github.com/mmdatafocus/ledger_backend/utils"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrUnbalancedEntry      = errors.New("journal entry is not balanced")
	ErrEmptyEntry           = errors.New("journal entry has no items")
	ErrPeriodLocked         = errors.New("date falls inside a closed financial period")
	ErrPostedEntryImmutable = errors.New("posted journal entry cannot be changed")
	ErrMissingLedgerLink    = errors.New("missing ledger account link")
	ErrArtifactConflict     = errors.New("ledger artifacts already exist for document")
	ErrAccountNotPostable   = errors.New("account does not accept journal lines")
	ErrInvalidJournalLine   = errors.New("journal line needs exactly one positive debit or credit")
	ErrDocumentPosted       = errors.New("document is posted")
)

var supportedLocales = []language.Tag{language.English, language.Arabic}

var localeMatcher = language.NewMatcher(supportedLocales)

// catalog keys are the English messages
var localizedErrors = []struct {
	err    error
	key    string
	arabic string
}{
	{ErrUnbalancedEntry, "The journal entry is not balanced: total debit must equal total credit.", "القيد غير متوازن: يجب أن يساوي إجمالي المدين إجمالي الدائن."},
	{ErrEmptyEntry, "The journal entry has no lines.", "القيد لا يحتوي على أي بنود."},
	{ErrPeriodLocked, "The date falls inside a closed financial period.", "التاريخ يقع ضمن فترة مالية مغلقة."},
	{ErrPostedEntryImmutable, "A posted journal entry cannot be changed. Unpost it first.", "لا يمكن تعديل قيد مرحل. قم بإلغاء الترحيل أولاً."},
	{ErrMissingLedgerLink, "A required ledger account is not linked.", "حساب الأستاذ المطلوب غير مرتبط."},
	{ErrArtifactConflict, "Ledger records already exist for this document.", "توجد قيود محاسبية لهذا المستند بالفعل."},
	{ErrAccountNotPostable, "The account does not accept journal lines.", "هذا الحساب لا يقبل بنود القيود."},
	{ErrInvalidJournalLine, "Each journal line needs either a debit or a credit amount.", "يجب أن يحتوي كل بند على مبلغ مدين أو دائن."},
	{ErrDocumentPosted, "The document is posted. Unpost it first.", "المستند مرحل. قم بإلغاء الترحيل أولاً."},
}

func init() {
	for _, m := range localizedErrors {
		_ = message.SetString(language.English, m.key, m.key)
		_ = message.SetString(language.Arabic, m.key, m.arabic)
	}
}

// LocalizedMessage renders err for the locale carried by ctx (English by default).
// Errors outside the ledger taxonomy are returned as is.
func LocalizedMessage(ctx context.Context, err error) string {
	if err == nil {
		return ""
	}
	tag := language.English
	if locale, ok := utils.GetLocaleFromContext(ctx); ok && locale != "" {
		if parsed, perr := language.Parse(locale); perr == nil {
			_, idx, _ := localeMatcher.Match(parsed)
			tag = supportedLocales[idx]
		}
	}
	p := message.NewPrinter(tag)
	for _, m := range localizedErrors {
		if errors.Is(err, m.err) {
			return p.Sprintf(m.key)
		}
	}
	return err.Error()
}
