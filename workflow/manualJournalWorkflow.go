package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

// ErrGeneratedEntry is returned when a document's journal entry is posted or deleted directly.
var ErrGeneratedEntry = errors.New("journal entry belongs to a document; post or unpost the document instead")

func isManualEntry(entry *models.JournalEntry) bool {
	return entry.ReferenceType == "" || entry.ReferenceType == models.DocumentJournal
}

// CreateManualJournal stores a draft entry and optionally posts it.
func (p *Poster) CreateManualJournal(ctx context.Context, input *models.NewJournalEntry, autoPost bool) (*models.JournalEntry, error) {
	input.ReferenceType = models.DocumentJournal
	var entry *models.JournalEntry
	err := p.transaction(ctx, "Create journal", nil, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		entry, err = models.CreateJournalEntry(ctx, tx, input)
		return err
	})
	if err != nil {
		config.LogError(p.Logger, "ManualJournalWorkflow.go", "CreateManualJournal", "CreateJournalEntry", input.EntryNumber, err)
		return nil, err
	}
	if !autoPost && !p.AutoPost {
		return entry, nil
	}
	if _, err := p.PostJournalEntry(ctx, entry.ID); err != nil {
		return entry, err
	}
	return models.GetJournalEntry(ctx, p.DB.WithContext(ctx), entry.ID)
}

func (p *Poster) PostJournalEntry(ctx context.Context, id int) (bool, error) {
	return p.manualJournalOp(ctx, "Post journal", id, p.Engine.Post)
}

func (p *Poster) UnpostJournalEntry(ctx context.Context, id int) (bool, error) {
	return p.manualJournalOp(ctx, "Unpost journal", id, p.Engine.Unpost)
}

// DeleteManualJournal unposts a manual entry if needed, then removes it.
func (p *Poster) DeleteManualJournal(ctx context.Context, id int) error {
	err := p.locked(ctx, "Delete journal", models.DocumentJournal, id, func(ctx context.Context, tx *gorm.DB) error {
		entry, err := utils.FetchModel[models.JournalEntry](ctx, tx, id)
		if err != nil {
			return err
		}
		if !isManualEntry(entry) {
			return fmt.Errorf("%s: %w", entry.EntryNumber, ErrGeneratedEntry)
		}
		return p.Engine.UnpostAndDelete(ctx, tx, id)
	})
	if err != nil {
		config.LogError(p.Logger, "ManualJournalWorkflow.go", "DeleteManualJournal", "UnpostAndDelete", id, err)
	}
	return err
}

func (p *Poster) manualJournalOp(ctx context.Context, op string, id int, apply func(ctx context.Context, tx *gorm.DB, id int) (bool, error)) (bool, error) {
	changed := false
	err := p.locked(ctx, op, models.DocumentJournal, id, func(ctx context.Context, tx *gorm.DB) error {
		entry, err := utils.FetchModel[models.JournalEntry](ctx, tx, id)
		if err != nil {
			return err
		}
		if !isManualEntry(entry) {
			return fmt.Errorf("%s: %w", entry.EntryNumber, ErrGeneratedEntry)
		}
		changed, err = apply(ctx, tx, id)
		return err
	})
	if err != nil {
		config.LogError(p.Logger, "ManualJournalWorkflow.go", op, "JournalEngine", id, err)
		return false, err
	}
	return changed, nil
}
