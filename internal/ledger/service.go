// Package ledger validates and applies mutations to the expense ledger.
//
// The service sits between the dashboard handlers and a sheets.LedgerStore:
// it rejects bad input before anything is written, generates record ids,
// normalizes dates, and reports adapter failures as generic messages while
// logging the details.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/log"
	ports "finanzas/internal/sheets"
)

// IDGenerator returns a fresh, never reused record id.
type IDGenerator func() string

// EventPublisher receives an event after every successful mutation.
type EventPublisher interface {
	Publish(ctx context.Context, ev core.LedgerEvent) error
}

// Draft is the user-provided content of a new expense.
type Draft struct {
	Date        core.Date
	Amount      decimal.Decimal
	Description string
	Person      string
	Category    string
	Subcategory string
	ExpenseType string
	Notes       string
}

type Service struct {
	store     ports.LedgerStore
	taxonomy  core.Taxonomy
	newID     IDGenerator
	now       func() time.Time
	publisher EventPublisher
	logger    *log.Logger

	mu      sync.Mutex
	columns map[core.Field]bool
}

type Option func(*Service)

func WithIDGenerator(g IDGenerator) Option { return func(s *Service) { s.newID = g } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithPublisher(p EventPublisher) Option { return func(s *Service) { s.publisher = p } }

func WithLogger(l *log.Logger) Option { return func(s *Service) { s.logger = l } }

func NewService(store ports.LedgerStore, taxonomy core.Taxonomy, opts ...Option) *Service {
	s := &Service{
		store:    store,
		taxonomy: taxonomy,
		newID:    uuid.NewString,
		now:      time.Now,
		logger:   log.NewComponentLogger(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Taxonomy returns the configured option sets.
func (s *Service) Taxonomy() core.Taxonomy { return s.taxonomy }

// Load reads the full record set. Nothing is cached between calls.
func (s *Service) Load(ctx context.Context) ([]core.Expense, error) {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load ledger", log.FieldError, err)
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return records, nil
}

// Create validates d and appends it with a freshly generated id.
func (s *Service) Create(ctx context.Context, d Draft) (string, error) {
	e := core.Expense{
		Date:        d.Date,
		Amount:      d.Amount,
		Description: strings.TrimSpace(d.Description),
		Person:      strings.TrimSpace(d.Person),
		Category:    strings.TrimSpace(d.Category),
		Subcategory: strings.TrimSpace(d.Subcategory),
		ExpenseType: strings.TrimSpace(d.ExpenseType),
		Notes:       strings.TrimSpace(d.Notes),
	}
	if e.Date.IsZero() {
		e.Date = core.DateOf(s.now())
	}
	if err := validateDraft(e); err != nil {
		return "", err
	}
	if err := s.taxonomy.Check(e); err != nil {
		return "", err
	}

	e.ID = s.newID()
	if err := s.store.Append(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "Failed to append expense",
			log.FieldExpenseID, e.ID,
			log.FieldError, err)
		return "", fmt.Errorf("append expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense created",
		log.FieldExpenseID, e.ID,
		log.FieldAmount, e.Amount.String(),
		log.FieldCategory, e.Category)
	s.publish(ctx, core.EventExpenseCreated, e.ID, nil)
	return e.ID, nil
}

func validateDraft(e core.Expense) error {
	if err := core.ValidateDescription(e.Description); err != nil {
		return core.Invalid(core.FieldDescription, err)
	}
	if err := core.ValidateAmount(e.Amount); err != nil {
		return core.Invalid(core.FieldAmount, err)
	}
	if strings.TrimSpace(e.Person) == "" {
		return core.Invalid(core.FieldPerson, core.ErrEmptyPerson)
	}
	if strings.TrimSpace(e.Category) == "" {
		return core.Invalid(core.FieldCategory, core.ErrEmptyCategory)
	}
	return nil
}

// Update overwrites the given fields of record id. Keys that are not store
// columns are dropped and the id itself is never rewritten. Amount,
// description, person and category are validated, enum fields must belong
// to the taxonomy and dates are normalized to ISO form.
func (s *Service) Update(ctx context.Context, id string, fields map[core.Field]string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Invalid(core.FieldID, errors.New("id is required"))
	}
	columns, err := s.storeColumns(ctx)
	if err != nil {
		return err
	}

	values := make(map[core.Field]string, len(fields))
	for f, v := range fields {
		if f == core.FieldID {
			s.logger.DebugContext(ctx, "Ignoring attempt to overwrite id", log.FieldExpenseID, id)
			continue
		}
		if !columns[f] {
			s.logger.DebugContext(ctx, "Ignoring unknown field", log.FieldExpenseID, id, "field", string(f))
			continue
		}
		normalized, err := s.normalizeField(f, v)
		if err != nil {
			return err
		}
		values[f] = normalized
	}

	if err := s.store.UpdateFields(ctx, id, values); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.logger.ErrorContext(ctx, "Failed to update expense", log.FieldExpenseID, id, log.FieldError, err)
		}
		return fmt.Errorf("update expense %s: %w", id, err)
	}

	changed := make([]core.Field, 0, len(values))
	for f := range values {
		changed = append(changed, f)
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i] < changed[j] })
	s.logger.InfoContext(ctx, "Expense updated", log.FieldExpenseID, id, "fields", len(changed))
	s.publish(ctx, core.EventExpenseUpdated, id, changed)
	return nil
}

func (s *Service) normalizeField(f core.Field, v string) (string, error) {
	v = strings.TrimSpace(v)
	switch f {
	case core.FieldPerson:
		if v == "" {
			return "", core.Invalid(f, core.ErrEmptyPerson)
		}
	case core.FieldCategory:
		if v == "" {
			return "", core.Invalid(f, core.ErrEmptyCategory)
		}
	}
	if err := s.taxonomy.CheckField(f, v); err != nil {
		return "", err
	}
	switch f {
	case core.FieldAmount:
		d, err := core.ParseAmount(v)
		if err != nil {
			return "", core.Invalid(f, err)
		}
		return d.String(), nil
	case core.FieldDescription:
		if err := core.ValidateDescription(v); err != nil {
			return "", core.Invalid(f, err)
		}
	case core.FieldDate:
		d, err := core.ParseDate(v)
		if err != nil {
			return "", core.Invalid(f, err)
		}
		return d.String(), nil
	}
	return v, nil
}

// Delete removes record id.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Invalid(core.FieldID, errors.New("id is required"))
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.logger.ErrorContext(ctx, "Failed to delete expense", log.FieldExpenseID, id, log.FieldError, err)
		}
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldExpenseID, id)
	s.publish(ctx, core.EventExpenseDeleted, id, nil)
	return nil
}

// storeColumns resolves which fields the store's header carries. The
// header is bound once per service; a header the schema cannot bind is a
// configuration error.
func (s *Service) storeColumns(ctx context.Context) (map[core.Field]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.columns != nil {
		return s.columns, nil
	}
	header, err := s.store.Header(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read ledger header", log.FieldError, err)
		return nil, fmt.Errorf("read header: %w", err)
	}
	layout, err := ports.SchemaV1.Bind(header)
	if err != nil {
		return nil, err
	}
	cols := make(map[core.Field]bool, len(core.Fields))
	for _, f := range core.Fields {
		if _, ok := layout.Column(f); ok {
			cols[f] = true
		}
	}
	s.columns = cols
	return cols, nil
}

// CheckSchema validates the store header at startup.
func (s *Service) CheckSchema(ctx context.Context) error {
	_, err := s.storeColumns(ctx)
	return err
}

func (s *Service) publish(ctx context.Context, t core.EventType, id string, fields []core.Field) {
	if s.publisher == nil {
		return
	}
	ev := core.LedgerEvent{Type: t, ExpenseID: id, Fields: fields, OccurredAt: s.now()}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			"event", string(t),
			log.FieldExpenseID, id,
			log.FieldError, err)
	}
}
