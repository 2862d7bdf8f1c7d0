package models

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
)

// PostingState is embedded by every document that generates ledger artifacts.
// The document owns the artifact ids; artifacts only carry reference_type/reference_id for lookup.
type PostingState struct {
	IsPosted       bool       `gorm:"not null;default:false;index" json:"is_posted"`
	PostedAt       *time.Time `json:"posted_at"`
	JournalEntryId *int       `json:"journal_entry_id"`
}

func (s PostingState) Posted() bool {
	return s.IsPosted
}

// PostableDocument is implemented by the pointer of every business document.
type PostableDocument interface {
	GetId() int
	DocumentType() DocumentType
	DocumentDate() time.Time
	Posted() bool
	// ArtifactColumns are the back-reference columns cleared on unpost.
	ArtifactColumns() []string
}

// LedgerArtifacts counts what a document has generated, found by reference.
type LedgerArtifacts struct {
	SafeTransactions    int64
	ContactTransactions int64
	ProductTransactions int64
	JournalEntries      int64
}

func (a LedgerArtifacts) Any() bool {
	return a.SafeTransactions+a.ContactTransactions+a.ProductTransactions+a.JournalEntries > 0
}

func CountArtifacts(ctx context.Context, tx *gorm.DB, refType DocumentType, refId int) (LedgerArtifacts, error) {
	var result LedgerArtifacts
	for _, c := range []struct {
		model interface{}
		dest  *int64
	}{
		{&SafeTransaction{}, &result.SafeTransactions},
		{&ContactTransaction{}, &result.ContactTransactions},
		{&ProductTransaction{}, &result.ProductTransactions},
		{&JournalEntry{}, &result.JournalEntries},
	} {
		if err := tx.WithContext(ctx).Model(c.model).
			Where("reference_type = ? AND reference_id = ?", refType, refId).
			Count(c.dest).Error; err != nil {
			return result, err
		}
	}
	return result, nil
}

// DeleteArtifacts removes every artifact generated for a document: subsidiary rows are
// deleted (their owners recalculated) and journal entries are unposted, then deleted.
func DeleteArtifacts(ctx context.Context, tx *gorm.DB, engine *JournalEngine, refType DocumentType, refId int) error {
	if _, err := DeleteSafeTransactionsByReference(ctx, tx, refType, refId); err != nil {
		return err
	}
	if _, err := DeleteContactTransactionsByReference(ctx, tx, refType, refId); err != nil {
		return err
	}
	if _, err := DeleteProductTransactionsByReference(ctx, tx, refType, refId); err != nil {
		return err
	}
	entries, err := FindJournalEntriesByReference(ctx, tx, refType, refId)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := engine.UnpostAndDelete(ctx, tx, entry.ID); err != nil {
			return err
		}
	}
	return nil
}

// MarkDocumentPosted flips the posting state of a document row without running hooks.
func MarkDocumentPosted[T any](ctx context.Context, tx *gorm.DB, id int, journalEntryId *int, at time.Time) error {
	return tx.WithContext(ctx).Model(new(T)).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"is_posted":        true,
		"posted_at":        at,
		"journal_entry_id": journalEntryId,
	}).Error
}

// MarkDocumentUnposted clears the posting state and the given back-reference columns.
func MarkDocumentUnposted[T any](ctx context.Context, tx *gorm.DB, id int, artifactColumns ...string) error {
	updates := map[string]interface{}{
		"is_posted":        false,
		"posted_at":        nil,
		"journal_entry_id": nil,
	}
	for _, column := range artifactColumns {
		updates[column] = nil
	}
	return tx.WithContext(ctx).Model(new(T)).Where("id = ?", id).UpdateColumns(updates).Error
}

// SetArtifactRef stores one back-reference on a document row.
func SetArtifactRef[T any](ctx context.Context, tx *gorm.DB, id int, column string, artifactId int) error {
	return tx.WithContext(ctx).Model(new(T)).Where("id = ?", id).UpdateColumn(column, artifactId).Error
}

// guardDraftDocument rejects edits of posted documents and of drafts dated in a locked period.
func guardDraftDocument(ctx context.Context, tx *gorm.DB, doc PostableDocument) error {
	if doc.Posted() {
		return ErrDocumentPosted
	}
	return CheckPeriodLock(ctx, tx, doc.DocumentDate())
}

func sortedKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// nextDocumentNumber formats the next number of a document table, e.g. INV-000042.
func nextDocumentNumber[T any](ctx context.Context, tx *gorm.DB, prefix string) (string, error) {
	var last int64
	if err := tx.WithContext(ctx).Model(new(T)).Select("COALESCE(MAX(id), 0)").Scan(&last).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", prefix, last+1), nil
}
