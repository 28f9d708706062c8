package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
	"github.com/Windi-Fikriyansyah/topup_be/internal/store"
)

const (
	docCustomPrices    = "custom_prices"
	docStatusOverrides = "status_overrides"
	docCustomImages    = "custom_images"
	docGameIDConfigs   = "game_id_configs"
)

var ErrInvalidOverride = errors.New("catalog: invalid override")

// Overrides are the admin edits layered over the base catalog. Price and
// variant status entries are keyed by VariantKey.
type Overrides struct {
	Prices        map[string]int64               `json:"custom_prices"`
	Statuses      map[string]models.Status       `json:"status_overrides"`
	Images        map[string]string              `json:"custom_images"`
	GameIDConfigs map[string]models.GameIDConfig `json:"game_id_configs"`
	UpdatedAt     time.Time                      `json:"updated_at"`
}

func VariantKey(productID, variantID string) string {
	return productID + "-" + variantID
}

// OverrideStore persists each override map as its own document. Writers in
// this process are serialized; documents are not updated atomically together.
type OverrideStore struct {
	docs *store.Documents
	mu   sync.Mutex
}

func NewOverrideStore(docs *store.Documents) *OverrideStore {
	return &OverrideStore{docs: docs}
}

func (s *OverrideStore) Load(ctx context.Context) (Overrides, error) {
	var o Overrides
	var err error
	var at time.Time

	if o.Prices, at, err = loadMap[int64](ctx, s.docs, docCustomPrices); err != nil {
		return Overrides{}, err
	}
	o.UpdatedAt = latest(o.UpdatedAt, at)
	if o.Statuses, at, err = loadMap[models.Status](ctx, s.docs, docStatusOverrides); err != nil {
		return Overrides{}, err
	}
	o.UpdatedAt = latest(o.UpdatedAt, at)
	if o.Images, at, err = loadMap[string](ctx, s.docs, docCustomImages); err != nil {
		return Overrides{}, err
	}
	o.UpdatedAt = latest(o.UpdatedAt, at)
	if o.GameIDConfigs, at, err = loadMap[models.GameIDConfig](ctx, s.docs, docGameIDConfigs); err != nil {
		return Overrides{}, err
	}
	o.UpdatedAt = latest(o.UpdatedAt, at)
	return o, nil
}

func (s *OverrideStore) SetPrice(ctx context.Context, productID, variantID string, price int64) error {
	if productID == "" || variantID == "" {
		return fmt.Errorf("%w: product and variant are required", ErrInvalidOverride)
	}
	if price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidOverride)
	}
	return updateMap(ctx, s, docCustomPrices, func(m map[string]int64) {
		m[VariantKey(productID, variantID)] = price
	})
}

func (s *OverrideStore) SetProductStatus(ctx context.Context, productID string, status models.Status) error {
	if productID == "" || !status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidOverride, status)
	}
	return updateMap(ctx, s, docStatusOverrides, func(m map[string]models.Status) {
		m[productID] = status
	})
}

func (s *OverrideStore) SetVariantStatus(ctx context.Context, productID, variantID string, status models.Status) error {
	if productID == "" || variantID == "" || !status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidOverride, status)
	}
	return updateMap(ctx, s, docStatusOverrides, func(m map[string]models.Status) {
		m[VariantKey(productID, variantID)] = status
	})
}

func (s *OverrideStore) SetImage(ctx context.Context, productID, url string) error {
	url = strings.TrimSpace(url)
	if productID == "" || url == "" {
		return fmt.Errorf("%w: image url is required", ErrInvalidOverride)
	}
	return updateMap(ctx, s, docCustomImages, func(m map[string]string) {
		m[productID] = url
	})
}

func (s *OverrideStore) SetGameIDConfig(ctx context.Context, productID string, cfg models.GameIDConfig) error {
	if productID == "" {
		return fmt.Errorf("%w: product is required", ErrInvalidOverride)
	}
	if err := validateGameIDConfig(cfg); err != nil {
		return err
	}
	return updateMap(ctx, s, docGameIDConfigs, func(m map[string]models.GameIDConfig) {
		m[productID] = cfg
	})
}

// ClearGameIDConfig drops the override so the brand default applies again.
func (s *OverrideStore) ClearGameIDConfig(ctx context.Context, productID string) error {
	return updateMap(ctx, s, docGameIDConfigs, func(m map[string]models.GameIDConfig) {
		delete(m, productID)
	})
}

// Clear removes every override document.
func (s *OverrideStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, key := range []string{docCustomPrices, docStatusOverrides, docCustomImages, docGameIDConfigs} {
		if err := s.docs.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func validateGameIDConfig(cfg models.GameIDConfig) error {
	check := func(label string, format models.IDFormat, min, max int) error {
		if format != "" && format != models.FormatNumeric && format != models.FormatAlphanumeric {
			return fmt.Errorf("%w: %s format %q", ErrInvalidOverride, label, format)
		}
		if min < 0 || max < 0 || (max > 0 && min > max) {
			return fmt.Errorf("%w: %s length bounds %d-%d", ErrInvalidOverride, label, min, max)
		}
		return nil
	}
	if cfg.RequiresGameID && strings.TrimSpace(cfg.GameIDLabel) == "" {
		return fmt.Errorf("%w: game id label is required", ErrInvalidOverride)
	}
	if cfg.RequiresServerID && strings.TrimSpace(cfg.ServerIDLabel) == "" {
		return fmt.Errorf("%w: server id label is required", ErrInvalidOverride)
	}
	if err := check("game id", cfg.GameIDFormat, cfg.GameIDMinLength, cfg.GameIDMaxLength); err != nil {
		return err
	}
	return check("server id", cfg.ServerIDFormat, cfg.ServerIDMinLength, cfg.ServerIDMaxLength)
}

func loadMap[V any](ctx context.Context, docs *store.Documents, key string) (map[string]V, time.Time, error) {
	m := map[string]V{}
	at, err := docs.Load(ctx, key, &m)
	if errors.Is(err, store.ErrNotFound) {
		return map[string]V{}, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load %s: %w", key, err)
	}
	if m == nil {
		m = map[string]V{}
	}
	return m, at, nil
}

func updateMap[V any](ctx context.Context, s *OverrideStore, key string, fn func(map[string]V)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, _, err := loadMap[V](ctx, s.docs, key)
	if err != nil {
		return err
	}
	fn(m)
	if _, err := s.docs.Save(ctx, key, m); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
