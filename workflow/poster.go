package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const tracerName = "github.com/mmdatafocus/ledger_backend/workflow"

// Poster runs every document post/unpost. Each operation holds the document's posting lock
// and runs in one database transaction.
type Poster struct {
	DB     *gorm.DB
	Locker PostingLocker
	Logger *logrus.Logger
	Audit  models.AuditSink
	Sinks  *models.BalanceSinkRegistry
	Engine *models.JournalEngine
	// Strict fails a post when a journal line has no account instead of skipping the line.
	Strict bool
	// AutoPost posts documents right after Create<Doc>.
	AutoPost bool
	Now      func() time.Time

	tracer trace.Tracer
}

type Option func(*Poster)

func WithLocker(locker PostingLocker) Option {
	return func(p *Poster) { p.Locker = locker }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(p *Poster) { p.Logger = logger }
}

func WithAuditSink(sink models.AuditSink) Option {
	return func(p *Poster) { p.Audit = sink }
}

func WithBalanceSinks(sinks *models.BalanceSinkRegistry) Option {
	return func(p *Poster) { p.Sinks = sinks }
}

func WithStrictLedgerLinks(strict bool) Option {
	return func(p *Poster) { p.Strict = strict }
}

func WithAutoPost(autoPost bool) Option {
	return func(p *Poster) { p.AutoPost = autoPost }
}

func WithClock(now func() time.Time) Option {
	return func(p *Poster) { p.Now = now }
}

// NewPoster wires the defaults from config; options override them.
func NewPoster(db *gorm.DB, opts ...Option) *Poster {
	p := &Poster{
		DB:       db,
		Logger:   config.GetLogger(),
		Audit:    models.DBAuditSink{},
		Sinks:    models.DefaultBalanceSinks(),
		Strict:   config.StrictLedgerLinks(),
		AutoPost: config.AutoPostDocuments(),
		Now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.Locker == nil {
		p.Locker = DefaultPostingLocker()
	}
	p.Engine = models.NewJournalEngine(p.Sinks, p.Audit)
	return p
}

func (p *Poster) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now().UTC()
}

// transaction opens a span and a database transaction without taking a posting lock.
func (p *Poster) transaction(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(ctx context.Context, tx *gorm.DB) error) error {
	ctx, correlationId := utils.EnsureCorrelationId(ctx)
	attrs = append(attrs, attribute.String("correlation_id", correlationId))
	ctx, span := p.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	defer span.End()

	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// locked is transaction under the posting lock of one document.
func (p *Poster) locked(ctx context.Context, op string, docType models.DocumentType, id int, fn func(ctx context.Context, tx *gorm.DB) error) error {
	release, err := p.Locker.Lock(ctx, postingLockKey(docType, id))
	if err != nil {
		config.LogError(p.Logger, "poster.go", op, "PostingLocker.Lock", map[string]interface{}{"document_type": docType, "document_id": id}, err)
		return err
	}
	defer release()
	attrs := []attribute.KeyValue{
		attribute.String("document.type", string(docType)),
		attribute.Int("document.id", id),
	}
	return p.transaction(ctx, op, attrs, fn)
}

// postingRun carries one post/unpost through the document's rules.
type postingRun struct {
	ctx      context.Context
	tx       *gorm.DB
	poster   *Poster
	defaults *models.AccountDefaults
	docType  models.DocumentType
	docId    int
	date     time.Time
	prefix   string
	journal  journalDraft
}

func (p *Poster) newRun(ctx context.Context, tx *gorm.DB, docType models.DocumentType, id int, date time.Time) (*postingRun, error) {
	defaults, err := models.LoadAccountDefaults(ctx, tx)
	if err != nil {
		return nil, err
	}
	return &postingRun{
		ctx:      ctx,
		tx:       tx,
		poster:   p,
		defaults: defaults,
		docType:  docType,
		docId:    id,
		date:     date,
		prefix:   EntryPrefixFor(docType),
	}, nil
}

func (r *postingRun) account(id *int) (*models.Account, error) {
	return models.ResolveAccount(r.ctx, r.tx, id)
}

func (r *postingRun) cashTransaction(owner *models.CashOwner, txType models.SafeTransactionType, amount decimal.Decimal, reference string) (*models.SafeTransaction, error) {
	return models.CreateSafeTransaction(r.ctx, r.tx, &models.NewSafeTransaction{
		Owner:           owner,
		TransactionDate: r.date,
		TransactionType: txType,
		Amount:          amount,
		ReferenceType:   r.docType,
		ReferenceId:     r.docId,
		Reference:       reference,
	})
}

func (r *postingRun) contactTransaction(contactId int, txType models.ContactTransactionType, amount decimal.Decimal, reference string) (*models.ContactTransaction, error) {
	return models.CreateContactTransaction(r.ctx, r.tx, &models.NewContactTransaction{
		ContactId:       contactId,
		TransactionDate: r.date,
		TransactionType: txType,
		Amount:          amount,
		ReferenceType:   r.docType,
		ReferenceId:     r.docId,
		Reference:       reference,
	})
}

func (r *postingRun) productTransaction(productId, storeId, unitId int, txType models.ProductTransactionType, quantity, unitPrice decimal.Decimal, reference string) (*models.ProductTransaction, error) {
	return models.CreateProductTransaction(r.ctx, r.tx, &models.NewProductTransaction{
		ProductId:       productId,
		StoreId:         storeId,
		ProductUnitId:   unitId,
		TransactionDate: r.date,
		TransactionType: txType,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		ReferenceType:   r.docType,
		ReferenceId:     r.docId,
		Reference:       reference,
	})
}

type postable[T any] interface {
	*T
	models.PostableDocument
}

// postDocument is the shared post flow: lock the row, refuse when artifacts already exist,
// check the period lock, let apply create the subsidiary rows and journal lines, then commit.
// It returns false when the document was already posted.
func postDocument[T any, PT postable[T]](ctx context.Context, p *Poster, id int, apply func(run *postingRun, doc PT) error, preload ...string) (bool, error) {
	docType := PT(new(T)).DocumentType()
	op := fmt.Sprintf("Post %s", docType)
	posted := false
	err := p.locked(ctx, op, docType, id, func(ctx context.Context, tx *gorm.DB) error {
		row, err := utils.FetchModelForUpdate[T](ctx, tx, id, preload...)
		if err != nil {
			return err
		}
		doc := PT(row)
		if doc.Posted() {
			return nil
		}
		artifacts, err := models.CountArtifacts(ctx, tx, docType, id)
		if err != nil {
			return err
		}
		if artifacts.Any() {
			return fmt.Errorf("%s %d: %w", docType, id, models.ErrArtifactConflict)
		}
		if err := EnforcePostingGate(ctx, tx, docType, id, doc.DocumentDate()); err != nil {
			return err
		}

		run, err := p.newRun(ctx, tx, docType, id, doc.DocumentDate())
		if err != nil {
			return err
		}
		if err := apply(run, doc); err != nil {
			return err
		}
		entryId, err := run.commitJournal()
		if err != nil {
			return err
		}
		if err := models.MarkDocumentPosted[T](ctx, tx, id, entryId, p.now()); err != nil {
			return err
		}
		posted = true
		return nil
	})
	if err != nil {
		config.LogError(p.Logger, "poster.go", op, "postDocument", map[string]interface{}{"id": id}, err)
		return false, err
	}
	return posted, nil
}

// unpostDocument reverses a post: reverse runs first (side effects on other rows), then every
// artifact referencing the document is removed. It returns false when the document was not posted.
func unpostDocument[T any, PT postable[T]](ctx context.Context, p *Poster, id int, reverse func(run *postingRun, doc PT) error, preload ...string) (bool, error) {
	docType := PT(new(T)).DocumentType()
	op := fmt.Sprintf("Unpost %s", docType)
	unposted := false
	err := p.locked(ctx, op, docType, id, func(ctx context.Context, tx *gorm.DB) error {
		row, err := utils.FetchModelForUpdate[T](ctx, tx, id, preload...)
		if err != nil {
			return err
		}
		doc := PT(row)
		if !doc.Posted() {
			return nil
		}
		if err := EnforcePostingGate(ctx, tx, docType, id, doc.DocumentDate()); err != nil {
			return err
		}
		if reverse != nil {
			run, err := p.newRun(ctx, tx, docType, id, doc.DocumentDate())
			if err != nil {
				return err
			}
			if err := reverse(run, doc); err != nil {
				return err
			}
		}
		if err := models.DeleteArtifacts(ctx, tx, p.Engine, docType, id); err != nil {
			return err
		}
		if err := models.MarkDocumentUnposted[T](ctx, tx, id, doc.ArtifactColumns()...); err != nil {
			return err
		}
		unposted = true
		return nil
	})
	if err != nil {
		config.LogError(p.Logger, "poster.go", op, "unpostDocument", map[string]interface{}{"id": id}, err)
		return false, err
	}
	return unposted, nil
}

// createDocument stores a draft and posts it when asked to, or when AutoPost is on.
func createDocument[T any, PT postable[T]](ctx context.Context, p *Poster, autoPost bool, create func(ctx context.Context, tx *gorm.DB) (PT, error), post func(ctx context.Context, id int) (bool, error), preload ...string) (PT, error) {
	var doc PT
	op := fmt.Sprintf("Create %s", PT(new(T)).DocumentType())
	err := p.transaction(ctx, op, nil, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		doc, err = create(ctx, tx)
		return err
	})
	if err != nil {
		config.LogError(p.Logger, "poster.go", op, "create", nil, err)
		return nil, err
	}
	if !autoPost && !p.AutoPost {
		return doc, nil
	}
	if _, err := post(ctx, doc.GetId()); err != nil {
		return doc, err
	}
	return reload[T, PT](ctx, p, doc.GetId(), preload...)
}

// deleteDocument unposts first, then removes the draft.
func deleteDocument[T any, PT postable[T]](ctx context.Context, p *Poster, id int, unpost func(ctx context.Context, id int) (bool, error), remove func(ctx context.Context, tx *gorm.DB, id int) error) error {
	if _, err := unpost(ctx, id); err != nil {
		return err
	}
	docType := PT(new(T)).DocumentType()
	return p.locked(ctx, fmt.Sprintf("Delete %s", docType), docType, id, func(ctx context.Context, tx *gorm.DB) error {
		return remove(ctx, tx, id)
	})
}

func reload[T any, PT postable[T]](ctx context.Context, p *Poster, id int, preload ...string) (PT, error) {
	row, err := utils.FetchModel[T](ctx, p.DB.WithContext(ctx), id, preload...)
	if err != nil {
		return nil, err
	}
	return PT(row), nil
}
