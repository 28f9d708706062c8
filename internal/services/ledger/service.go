package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/topup_be/internal/events"
	"github.com/Windi-Fikriyansyah/topup_be/internal/metrics"
	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
)

var (
	ErrNotFound = errors.New("ledger: transaction not found")
	ErrInvalid  = errors.New("ledger: invalid transaction")
)

// StatusSink receives every transaction state change, e.g. the websocket bridge.
type StatusSink interface {
	PublishStatus(ctx context.Context, trx models.Transaction)
}

// NewTransaction is a validated checkout ready to be recorded.
type NewTransaction struct {
	UserName      string
	UserEmail     string
	UserPhone     string
	GameID        string
	ServerID      string
	ProductID     string
	VariantID     string
	ProductName   string
	VariantName   string
	Amount        int64
	PaymentMethod models.PaymentMethod
}

func (n NewTransaction) validate() error {
	switch {
	case strings.TrimSpace(n.UserName) == "":
		return fmt.Errorf("%w: user name is empty", ErrInvalid)
	case n.ProductID == "" || n.VariantID == "":
		return fmt.Errorf("%w: product and variant are required", ErrInvalid)
	case n.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}
	if _, ok := models.FindPaymentChannel(n.PaymentMethod); !ok {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalid, n.PaymentMethod)
	}
	return nil
}

type Filter struct {
	Query  string
	Status models.TransactionStatus
	Limit  int
}

type Stats struct {
	Total   int64 `json:"total"`
	Revenue int64 `json:"revenue"`
	Success int64 `json:"success"`
	Pending int64 `json:"pending"`
}

type Options struct {
	DB          *gorm.DB
	SettleDelay time.Duration
	Events      events.Publisher
	Status      StatusSink
	Metrics     *metrics.Registry
}

// Service records transactions and settles them through the
// settlement_tasks outbox.
type Service struct {
	db          *gorm.DB
	settleDelay time.Duration
	events      events.Publisher
	status      StatusSink
	metrics     *metrics.Registry
	now         func() time.Time
}

func NewService(opts Options) *Service {
	pub := opts.Events
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{
		db:          opts.DB,
		settleDelay: opts.SettleDelay,
		events:      pub,
		status:      opts.Status,
		metrics:     opts.Metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a pending transaction together with its settlement task.
func (s *Service) Create(ctx context.Context, in NewTransaction) (models.Transaction, error) {
	if err := in.validate(); err != nil {
		return models.Transaction{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.Transaction{}, err
	}
	now := s.now()
	millis := now.UnixMilli()

	trx := models.Transaction{
		ID:            "txn-" + id.String(),
		UserID:        fmt.Sprintf("user-%d", millis),
		UserName:      strings.TrimSpace(in.UserName),
		UserEmail:     strings.TrimSpace(in.UserEmail),
		UserPhone:     strings.TrimSpace(in.UserPhone),
		GameID:        strings.TrimSpace(in.GameID),
		ServerID:      strings.TrimSpace(in.ServerID),
		ProductID:     in.ProductID,
		VariantID:     in.VariantID,
		ProductName:   in.ProductName,
		VariantName:   in.VariantName,
		Amount:        in.Amount,
		PaymentMethod: in.PaymentMethod,
		Status:        models.TransactionStatusPending,
		ReferenceID:   fmt.Sprintf("REF-%d", millis),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	task := models.SettlementTask{
		TransactionID: trx.ID,
		DueAt:         now.Add(s.settleDelay),
		CreatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&trx).Error; err != nil {
			return err
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		return models.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	log.Printf("[ledger] created %s (%s / %s, %d)", trx.ID, trx.ProductID, trx.VariantID, trx.Amount)
	s.metrics.ObserveCreated()
	s.notify(ctx, events.TypeTransactionCreated, trx)
	return trx, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Transaction, error) {
	var trx models.Transaction
	err := s.db.WithContext(ctx).First(&trx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Transaction{}, ErrNotFound
	}
	return trx, err
}

// List returns transactions newest first. Query matches id, buyer name,
// product name and game id case-insensitively, or the phone number.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Transaction, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{})

	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		like := "%" + term + "%"
		q = q.Where(
			"LOWER(id) LIKE ? OR LOWER(user_name) LIKE ? OR LOWER(product_name) LIKE ? OR LOWER(game_id) LIKE ? OR user_phone LIKE ?",
			like, like, like, like, like,
		)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []models.Transaction
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Settle completes an open transaction and marks its settlement task done.
// Settling a terminal transaction only closes the task. The returned bool
// reports whether the status changed.
func (s *Service) Settle(ctx context.Context, id string) (models.Transaction, bool, error) {
	var (
		trx     models.Transaction
		changed bool
		lag     time.Duration
	)
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&trx, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var task models.SettlementTask
		hasTask := tx.Where("transaction_id = ?", id).Limit(1).Find(&task).RowsAffected == 1

		if trx.Status.Open() {
			at := now
			if !at.After(trx.CreatedAt) {
				at = trx.CreatedAt.Add(time.Millisecond)
			}
			res := tx.Model(&models.Transaction{}).
				Where("id = ? AND status IN ?", id, []string{
					string(models.TransactionStatusPending),
					string(models.TransactionStatusProcessing),
				}).
				Updates(map[string]any{"status": models.TransactionStatusSuccess, "updated_at": at})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				changed = true
				trx.Status = models.TransactionStatusSuccess
				trx.UpdatedAt = at
				if hasTask && now.After(task.DueAt) {
					lag = now.Sub(task.DueAt)
				}
			}
		}

		if hasTask && task.DoneAt == nil {
			return tx.Model(&models.SettlementTask{}).
				Where("id = ?", task.ID).
				Updates(map[string]any{"done_at": now, "attempts": gorm.Expr("attempts + 1")}).Error
		}
		return nil
	})
	if err != nil {
		return models.Transaction{}, false, err
	}

	if changed {
		log.Printf("[ledger] settled %s", trx.ID)
		s.metrics.ObserveSettled(lag.Seconds())
		s.notify(ctx, events.TypeTransactionSettled, trx)
	}
	return trx, changed, nil
}

// SweepDue settles every undone task due at or before now and returns how
// many transactions changed status.
func (s *Service) SweepDue(ctx context.Context, now time.Time) (int, error) {
	var tasks []models.SettlementTask
	err := s.db.WithContext(ctx).
		Where("done_at IS NULL AND due_at <= ?", now).
		Order("due_at ASC").
		Find(&tasks).Error
	if err != nil {
		return 0, err
	}

	settled := 0
	var errs []error
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		_, changed, err := s.Settle(ctx, task.TransactionID)
		if err != nil {
			errs = append(errs, fmt.Errorf("settle %s: %w", task.TransactionID, err))
			s.recordFailure(ctx, task.ID, err)
			continue
		}
		if changed {
			settled++
		}
	}
	return settled, errors.Join(errs...)
}

func (s *Service) recordFailure(ctx context.Context, taskID uint, cause error) {
	err := s.db.WithContext(ctx).Model(&models.SettlementTask{}).
		Where("id = ?", taskID).
		Updates(map[string]any{"attempts": gorm.Expr("attempts + 1"), "last_error": cause.Error()}).Error
	if err != nil {
		log.Printf("[ledger] record failure for task %d: %v", taskID, err)
	}
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN amount ELSE 0 END), 0) AS revenue, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS success, "+
				"COALESCE(SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END), 0) AS pending",
			models.TransactionStatusSuccess,
			models.TransactionStatusSuccess,
			[]string{string(models.TransactionStatusPending), string(models.TransactionStatusProcessing)},
		).Row()
	if err := row.Scan(&st.Total, &st.Revenue, &st.Success, &st.Pending); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *Service) notify(ctx context.Context, typ string, trx models.Transaction) {
	if err := s.events.Publish(ctx, events.NewTransactionEvent(typ, trx)); err != nil {
		log.Printf("[ledger] publish %s for %s: %v", typ, trx.ID, err)
		s.metrics.ObservePublishFailed()
	}
	if s.status != nil {
		s.status.PublishStatus(ctx, trx)
	}
}
