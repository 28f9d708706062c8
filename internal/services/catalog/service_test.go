package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/digiflazz"
	"github.com/Windi-Fikriyansyah/topup_be/internal/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeFetcher struct {
	mu    sync.Mutex
	skus  []digiflazz.SKU
	err   error
	calls int
	creds digiflazz.Credentials
}

func (f *fakeFetcher) FetchPriceList(_ context.Context, creds digiflazz.Credentials) ([]digiflazz.SKU, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.creds = creds
	if !creds.Configured() {
		return nil, digiflazz.ErrNotConfigured
	}
	return f.skus, f.err
}

func (f *fakeFetcher) set(skus []digiflazz.SKU, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skus, f.err = skus, err
}

func upstream() []digiflazz.SKU {
	return []digiflazz.SKU{
		sku("Mobile Legends", "Mobile Legends 86 Diamond", "ML86", 20000),
		sku("Mobile Legends", "Mobile Legends 5 Diamond", "ML5", 1400),
		sku("Valorant", "Valorant 125 Points", "VP125", 14000),
	}
}

func newTestService(t *testing.T, envCreds digiflazz.Credentials) (*Service, *fakeFetcher, *store.MemoryKV) {
	t.Helper()
	kv := store.NewMemoryKV()
	f := &fakeFetcher{skus: upstream()}
	svc := NewService(Options{
		Docs:           store.NewDocuments(kv),
		Fetcher:        f,
		Transformer:    newTransformer(t),
		EnvCredentials: envCreds,
		SecretKey:      testSecret,
	})
	return svc, f, kv
}

var envCreds = digiflazz.Credentials{Username: "user", APIKey: "dev-key"}

func ids(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestProductsFallbackWhenNotConfigured(t *testing.T) {
	svc, f, _ := newTestService(t, digiflazz.Credentials{})

	listing, err := svc.Products(context.Background(), UserView, "")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, listing.Source)
	assert.NotEmpty(t, listing.Products)
	assert.Zero(t, f.calls)

	fallback, err := FallbackProducts()
	require.NoError(t, err)
	assert.Equal(t, ids(fallback), ids(listing.Products))
}

func TestProductsSyncsOnceThenReadsCache(t *testing.T) {
	ctx := context.Background()
	svc, f, _ := newTestService(t, envCreds)

	listing, err := svc.Products(ctx, UserView, "")
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, listing.Source)
	assert.Equal(t, []string{"mobile-legends", "valorant"}, ids(listing.Products))
	require.NotNil(t, listing.SyncedAt)

	listing, err = svc.Products(ctx, UserView, "moba")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, listing.Source)
	assert.Equal(t, []string{"mobile-legends"}, ids(listing.Products))
	assert.Equal(t, 1, f.calls)
}

func TestProductsFallbackWhenSyncFails(t *testing.T) {
	svc, f, _ := newTestService(t, envCreds)
	f.set(nil, fmt.Errorf("%w: connection refused", digiflazz.ErrRemote))

	listing, err := svc.Products(context.Background(), UserView, "")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, listing.Source)
	assert.Contains(t, listing.Warning, "connection refused")
}

func TestSyncFreshPersistsSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, envCreds)

	res, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, res.Fresh)
	assert.NoError(t, res.Err)
	assert.Len(t, res.Products, 2)

	info, err := svc.SyncInfo(ctx)
	require.NoError(t, err)
	assert.True(t, info.HasCache)
	assert.True(t, info.Configured)
	assert.Equal(t, 2, info.ProductCount)
	require.NotNil(t, info.LastSync)
	assert.Equal(t, res.SyncedAt, *info.LastSync)
}

func TestSyncStaleOnRemoteAndProtocolErrors(t *testing.T) {
	for _, upstreamErr := range []error{
		fmt.Errorf("%w: http 502", digiflazz.ErrRemote),
		&digiflazz.ProtocolError{Code: "41", Message: "Signature Anda salah"},
	} {
		t.Run(upstreamErr.Error(), func(t *testing.T) {
			ctx := context.Background()
			svc, f, _ := newTestService(t, envCreds)
			first, err := svc.Sync(ctx)
			require.NoError(t, err)

			f.set(nil, upstreamErr)
			res, err := svc.Sync(ctx)
			require.NoError(t, err)
			assert.False(t, res.Fresh)
			assert.True(t, errors.Is(res.Err, upstreamErr) || errors.Is(res.Err, digiflazz.ErrProtocol))
			assert.Equal(t, first.Products, res.Products)
			assert.Equal(t, first.SyncedAt, res.SyncedAt)
		})
	}
}

func TestSyncRemoteErrorWithoutCache(t *testing.T) {
	svc, f, _ := newTestService(t, envCreds)
	f.set(nil, fmt.Errorf("%w: timeout", digiflazz.ErrRemote))

	_, err := svc.Sync(context.Background())
	require.ErrorIs(t, err, digiflazz.ErrRemote)
}

func TestSyncDataErrorsLeaveSnapshotUntouched(t *testing.T) {
	inactive := sku("Mobile Legends", "ML 5 Diamond", "ML5", 1400)
	inactive.BuyerProductStatus = flag(false)

	cases := []struct {
		name string
		skus []digiflazz.SKU
		err  error
		want error
	}{
		{"empty catalog", nil, digiflazz.ErrEmptyCatalog, digiflazz.ErrEmptyCatalog},
		{"unrecognized shape", nil, digiflazz.ErrUnrecognizedShape, digiflazz.ErrUnrecognizedShape},
		{"no active products", []digiflazz.SKU{inactive, inactive, inactive, inactive, inactive}, nil, ErrNoActiveProducts},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			svc, f, _ := newTestService(t, envCreds)
			first, err := svc.Sync(ctx)
			require.NoError(t, err)

			f.set(tc.skus, tc.err)
			_, err = svc.Sync(ctx)
			require.ErrorIs(t, err, tc.want)

			listing, err := svc.Products(ctx, AdminView, "")
			require.NoError(t, err)
			assert.Equal(t, SourceCache, listing.Source)
			assert.Equal(t, first.Products, listing.Products)
		})
	}
}

func TestSyncNotConfigured(t *testing.T) {
	svc, _, _ := newTestService(t, digiflazz.Credentials{})
	_, err := svc.Sync(context.Background())
	require.ErrorIs(t, err, digiflazz.ErrNotConfigured)
}

func TestOverrideSurvivesResync(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, envCreds)
	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Overrides().SetProductStatus(ctx, "valorant", models.StatusInactive))
	require.NoError(t, svc.Overrides().SetPrice(ctx, "mobile-legends", "ML86", 21000))

	res, err := svc.Sync(ctx)
	require.NoError(t, err)
	require.True(t, res.Fresh)

	listing, err := svc.Products(ctx, UserView, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"mobile-legends"}, ids(listing.Products))

	ml := listing.Products[0]
	v, ok := ml.Variant("ML86")
	require.True(t, ok)
	assert.Equal(t, int64(21000), v.Price)
	v, ok = ml.Variant("ML5")
	require.True(t, ok)
	assert.Equal(t, MarkupPrice(1400, 10), v.Price)

	admin, err := svc.Products(ctx, AdminView, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"mobile-legends", "valorant"}, ids(admin.Products))
	assert.Equal(t, models.StatusInactive, admin.Products[1].Status)
}

func TestProductLookup(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, envCreds)
	require.NoError(t, svc.Overrides().SetProductStatus(ctx, "valorant", models.StatusInactive))

	p, src, err := svc.Product(ctx, UserView, "mobile-legends")
	require.NoError(t, err)
	assert.Equal(t, "mobile-legends", p.ID)
	assert.Equal(t, SourceRemote, src)

	_, _, err = svc.Product(ctx, UserView, "valorant")
	require.ErrorIs(t, err, ErrProductNotFound)

	p, _, err = svc.Product(ctx, AdminView, "valorant")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, p.Status)

	_, _, err = svc.Product(ctx, AdminView, "nope")
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestClearSynced(t *testing.T) {
	ctx := context.Background()
	svc, _, kv := newTestService(t, digiflazz.Credentials{})
	require.NoError(t, svc.SetCredentials(ctx, envCreds))
	_, err := svc.Sync(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Overrides().SetImage(ctx, "valorant", "v.png"))

	require.NoError(t, svc.ClearSynced(ctx))

	for _, key := range []string{"digiflazz_products", "digiflazz_last_sync", "custom_images"} {
		_, err := kv.Get(ctx, key)
		require.ErrorIs(t, err, store.ErrNotFound, key)
	}
	_, err = kv.Get(ctx, "digiflazz_config")
	require.NoError(t, err, "credentials are kept")

	info, err := svc.SyncInfo(ctx)
	require.NoError(t, err)
	assert.False(t, info.HasCache)
	assert.Nil(t, info.LastSync)
}

func TestCorruptSnapshotIsTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	svc, _, kv := newTestService(t, digiflazz.Credentials{})
	require.NoError(t, kv.Set(ctx, "digiflazz_products", []byte(`{"schema_version":1,"data":"oops"}`)))

	listing, err := svc.Products(ctx, UserView, "")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, listing.Source)
}

func TestLegacySnapshotIsMigrated(t *testing.T) {
	ctx := context.Background()
	svc, _, kv := newTestService(t, digiflazz.Credentials{})
	require.NoError(t, kv.Set(ctx, "digiflazz_products",
		[]byte(`[{"id":"legacy","status":"active","variants":[{"id":"L1","price":1000,"status":"active"}]}]`)))
	require.NoError(t, kv.Set(ctx, "digiflazz_last_sync", []byte(`"2024-05-01T10:00:00.000Z"`)))

	listing, err := svc.Products(ctx, UserView, "")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, listing.Source)
	assert.Equal(t, []string{"legacy"}, ids(listing.Products))

	info, err := svc.SyncInfo(ctx)
	require.NoError(t, err)
	require.NotNil(t, info.LastSync)
	assert.Equal(t, 2024, info.LastSync.Year())
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	svc, f, kv := newTestService(t, envCreds)

	creds, src, err := svc.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, CredentialsEnv, src)
	assert.Equal(t, envCreds, creds)

	stored := digiflazz.Credentials{Username: "admin-user", APIKey: "prod-key-123"}
	require.NoError(t, svc.SetCredentials(ctx, stored))

	raw, err := kv.Get(ctx, "digiflazz_config")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "prod-key-123", "api key is encrypted at rest")

	creds, src, err = svc.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, CredentialsStored, src)
	assert.Equal(t, stored, creds)

	_, err = svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, f.creds)

	require.ErrorIs(t, svc.SetCredentials(ctx, digiflazz.Credentials{Username: "x"}), digiflazz.ErrNotConfigured)

	require.NoError(t, svc.ClearCredentials(ctx))
	_, src, err = svc.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, CredentialsEnv, src)
}

func TestCredentialsNone(t *testing.T) {
	svc, _, _ := newTestService(t, digiflazz.Credentials{})
	creds, src, err := svc.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CredentialsNone, src)
	assert.False(t, creds.Configured())
}
