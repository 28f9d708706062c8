package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/Windi-Fikriyansyah/topup_be/internal/metrics"
	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/digiflazz"
	"github.com/Windi-Fikriyansyah/topup_be/internal/store"
	"github.com/Windi-Fikriyansyah/topup_be/internal/utils"
)

const (
	docSnapshot    = "digiflazz_products"
	docLastSync    = "digiflazz_last_sync"
	docCredentials = "digiflazz_config"
)

var ErrProductNotFound = errors.New("catalog: product not found")

var tracer = otel.Tracer("topup/catalog")

type Source string

const (
	SourceCache    Source = "cache"
	SourceRemote   Source = "remote"
	SourceStale    Source = "stale"
	SourceFallback Source = "fallback"
)

type View int

const (
	// UserView hides inactive products and variants.
	UserView View = iota
	// AdminView returns every product regardless of status.
	AdminView
)

// Fetcher is the upstream price list source.
type Fetcher interface {
	FetchPriceList(ctx context.Context, creds digiflazz.Credentials) ([]digiflazz.SKU, error)
}

// Listing is a merged catalog read together with where the base data came from.
type Listing struct {
	Products []models.Product `json:"products"`
	Source   Source           `json:"source"`
	SyncedAt *time.Time       `json:"synced_at,omitempty"`
	Warning  string           `json:"warning,omitempty"`
}

// SyncResult reports a sync. Fresh is false when the upstream failed and the
// previous snapshot was kept; Err then holds the upstream failure.
type SyncResult struct {
	Products []models.Product
	Fresh    bool
	SyncedAt time.Time
	Err      error
}

type SyncInfo struct {
	LastSync     *time.Time `json:"last_sync,omitempty"`
	HasCache     bool       `json:"has_cache"`
	ProductCount int        `json:"product_count"`
	Configured   bool       `json:"configured"`
}

type CredentialSource string

const (
	CredentialsStored CredentialSource = "stored"
	CredentialsEnv    CredentialSource = "env"
	CredentialsNone   CredentialSource = "none"
)

type storedCredentials struct {
	Username  string `json:"username"`
	APIKeyEnc string `json:"api_key_enc"`
}

type Options struct {
	Docs           *store.Documents
	Fetcher        Fetcher
	Transformer    Transformer
	EnvCredentials digiflazz.Credentials
	SecretKey      string
	Metrics        *metrics.Registry
}

// Service owns the catalog read flow: cached snapshot, then a sync when
// credentials exist, then the static fallback. Every path merges overrides.
type Service struct {
	docs        *store.Documents
	overrides   *OverrideStore
	fetcher     Fetcher
	transformer Transformer
	envCreds    digiflazz.Credentials
	secretKey   string
	metrics     *metrics.Registry

	group singleflight.Group
	now   func() time.Time
}

func NewService(opts Options) *Service {
	return &Service{
		docs:        opts.Docs,
		overrides:   NewOverrideStore(opts.Docs),
		fetcher:     opts.Fetcher,
		transformer: opts.Transformer,
		envCreds:    opts.EnvCredentials,
		secretKey:   opts.SecretKey,
		metrics:     opts.Metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Overrides() *OverrideStore { return s.overrides }

func (s *Service) Brands() *BrandTable { return s.transformer.brands() }

func (s *Service) Products(ctx context.Context, view View, category string) (Listing, error) {
	listing, err := s.base(ctx)
	if err != nil {
		return Listing{}, err
	}
	s.metrics.ObserveRead(string(listing.Source))

	o, err := s.overrides.Load(ctx)
	if err != nil {
		return Listing{}, err
	}

	products := Merge(listing.Products, o)
	if view == UserView {
		products = FilterVisible(products)
	}
	listing.Products = FilterCategory(products, category)
	return listing, nil
}

func (s *Service) Product(ctx context.Context, view View, id string) (models.Product, Source, error) {
	listing, err := s.Products(ctx, view, "")
	if err != nil {
		return models.Product{}, "", err
	}
	for _, p := range listing.Products {
		if p.ID == id {
			return p, listing.Source, nil
		}
	}
	return models.Product{}, listing.Source, ErrProductNotFound
}

func (s *Service) base(ctx context.Context) (Listing, error) {
	cached, at, ok, err := s.loadSnapshot(ctx)
	if err != nil {
		return Listing{}, err
	}
	if ok {
		return Listing{Products: cached, Source: SourceCache, SyncedAt: timePtr(at)}, nil
	}

	var warning string
	creds, _, err := s.Credentials(ctx)
	if err != nil {
		return Listing{}, err
	}
	if creds.Configured() {
		res, err := s.Sync(ctx)
		if err == nil {
			src := SourceRemote
			if !res.Fresh {
				src = SourceStale
				warning = res.Err.Error()
			}
			return Listing{Products: res.Products, Source: src, SyncedAt: timePtr(res.SyncedAt), Warning: warning}, nil
		}
		log.Printf("[catalog] sync failed, serving fallback catalog: %v", err)
		warning = err.Error()
	}

	fallback, err := FallbackProducts()
	if err != nil {
		return Listing{}, err
	}
	return Listing{Products: fallback, Source: SourceFallback, Warning: warning}, nil
}

// Sync fetches and transforms the upstream price list and replaces the
// snapshot. Remote and protocol failures degrade to the previous snapshot
// when one exists; every other failure leaves the snapshot untouched and is
// returned. Concurrent calls share one upstream request.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	v, err, _ := s.group.Do("sync", func() (any, error) {
		return s.sync(ctx)
	})
	if err != nil {
		return SyncResult{}, err
	}
	return v.(SyncResult), nil
}

func (s *Service) sync(ctx context.Context) (SyncResult, error) {
	ctx, span := tracer.Start(ctx, "catalog.sync")
	defer span.End()

	res, err := s.doSync(ctx)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.ObserveSync("error")
	case !res.Fresh:
		span.RecordError(res.Err)
		s.metrics.ObserveSync("stale")
	default:
		s.metrics.ObserveSync("fresh")
	}
	span.SetAttributes(attribute.Bool("catalog.fresh", res.Fresh), attribute.Int("catalog.products", len(res.Products)))
	return res, err
}

func (s *Service) doSync(ctx context.Context) (SyncResult, error) {
	creds, _, err := s.Credentials(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	skus, err := s.fetcher.FetchPriceList(ctx, creds)
	if err != nil {
		if errors.Is(err, digiflazz.ErrRemote) || errors.Is(err, digiflazz.ErrProtocol) {
			cached, at, ok, cerr := s.loadSnapshot(ctx)
			if cerr == nil && ok {
				log.Printf("[catalog] upstream failed, keeping snapshot from %s: %v", at.Format(time.RFC3339), err)
				return SyncResult{Products: cached, Fresh: false, SyncedAt: at, Err: err}, nil
			}
		}
		return SyncResult{}, err
	}

	products, err := s.transformer.Transform(skus)
	if err != nil {
		return SyncResult{}, err
	}

	at, err := s.docs.Save(ctx, docSnapshot, products)
	if err != nil {
		return SyncResult{}, fmt.Errorf("save snapshot: %w", err)
	}
	if _, err := s.docs.Save(ctx, docLastSync, at); err != nil {
		return SyncResult{}, fmt.Errorf("save last sync: %w", err)
	}

	log.Printf("[catalog] synced %d products from %d records", len(products), len(skus))
	return SyncResult{Products: products, Fresh: true, SyncedAt: at}, nil
}

func (s *Service) SyncInfo(ctx context.Context) (SyncInfo, error) {
	var info SyncInfo

	cached, at, ok, err := s.loadSnapshot(ctx)
	if err != nil {
		return SyncInfo{}, err
	}
	info.HasCache = ok
	info.ProductCount = len(cached)

	var last time.Time
	if _, err := s.docs.Load(ctx, docLastSync, &last); err == nil && !last.IsZero() {
		info.LastSync = timePtr(last)
	} else if ok && !at.IsZero() {
		info.LastSync = timePtr(at)
	}

	creds, _, err := s.Credentials(ctx)
	if err != nil {
		return SyncInfo{}, err
	}
	info.Configured = creds.Configured()
	return info, nil
}

// ClearSynced drops the snapshot, the last sync time and every override.
func (s *Service) ClearSynced(ctx context.Context) error {
	var errs []error
	for _, key := range []string{docSnapshot, docLastSync} {
		if err := s.docs.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	if err := s.overrides.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Println("[catalog] cleared synced products and overrides")
	return nil
}

// Credentials returns the stored upstream credentials, or the environment
// ones when none are stored.
func (s *Service) Credentials(ctx context.Context) (digiflazz.Credentials, CredentialSource, error) {
	var sc storedCredentials
	_, err := s.docs.Load(ctx, docCredentials, &sc)
	switch {
	case err == nil && sc.Username != "" && sc.APIKeyEnc != "":
		key, derr := utils.DecryptString(sc.APIKeyEnc, s.secretKey)
		if derr == nil {
			return digiflazz.Credentials{Username: sc.Username, APIKey: key}, CredentialsStored, nil
		}
		log.Printf("[catalog] stored credentials unreadable, using env: %v", derr)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return digiflazz.Credentials{}, CredentialsNone, err
	}

	if s.envCreds.Configured() {
		return s.envCreds, CredentialsEnv, nil
	}
	return digiflazz.Credentials{}, CredentialsNone, nil
}

func (s *Service) SetCredentials(ctx context.Context, creds digiflazz.Credentials) error {
	creds.Username = strings.TrimSpace(creds.Username)
	creds.APIKey = strings.TrimSpace(creds.APIKey)
	if !creds.Configured() {
		return digiflazz.ErrNotConfigured
	}

	enc, err := utils.EncryptString(creds.APIKey, s.secretKey)
	if err != nil {
		return fmt.Errorf("encrypt api key: %w", err)
	}
	if _, err := s.docs.Save(ctx, docCredentials, storedCredentials{Username: creds.Username, APIKeyEnc: enc}); err != nil {
		return err
	}
	log.Printf("[catalog] upstream credentials updated for %s", creds.Username)
	return nil
}

func (s *Service) ClearCredentials(ctx context.Context) error {
	return s.docs.Delete(ctx, docCredentials)
}

func (s *Service) loadSnapshot(ctx context.Context) ([]models.Product, time.Time, bool, error) {
	var products []models.Product
	at, err := s.docs.Load(ctx, docSnapshot, &products)
	if errors.Is(err, store.ErrNotFound) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	return products, at, true, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
