package app

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/storage"
)

func TestCheckoutConfig_Rates(t *testing.T) {
	rates, err := CheckoutConfig{DeliveryFee: "10000", TaxRate: "0.18"}.Rates()
	require.NoError(t, err)
	assert.True(t, rates.DeliveryFee.Equal(decimal.NewFromInt(10000)))
	assert.True(t, rates.TaxRate.Equal(decimal.RequireFromString("0.18")))

	tests := []struct {
		name string
		cfg  CheckoutConfig
	}{
		{"bad fee", CheckoutConfig{DeliveryFee: "ten", TaxRate: "0.18"}},
		{"bad rate", CheckoutConfig{DeliveryFee: "0", TaxRate: "18%"}},
		{"negative", CheckoutConfig{DeliveryFee: "-1", TaxRate: "0.18"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Rates()
			assert.Error(t, err)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := defaultCheckout()
	tests := []struct {
		name    string
		storage StorageConfig
		wantErr string
	}{
		{"file", StorageConfig{Driver: DriverFile, Dir: "data"}, ""},
		{"file without dir", StorageConfig{Driver: DriverFile}, "storage dir"},
		{"postgres without url", StorageConfig{Driver: DriverPostgres}, "database URL"},
		{"postgres", StorageConfig{Driver: DriverPostgres, DatabaseURL: "postgres://localhost/kart"}, ""},
		{"memory", StorageConfig{Driver: DriverMemory}, ""},
		{"unknown", StorageConfig{Driver: "redis"}, `unknown storage driver "redis"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Storage: tt.storage, Checkout: valid}
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_ApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/kart")
	t.Setenv("PORT", "9000")

	cfg := Config{Addr: "0.0.0.0:8080"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://platform/kart", cfg.Storage.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)

	cfg = Config{Addr: "127.0.0.1:7000", Storage: StorageConfig{DatabaseURL: "postgres://explicit/kart"}}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit/kart", cfg.Storage.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	mem, err := OpenStorage(ctx, StorageConfig{Driver: DriverMemory}, zap.NewNop())
	require.NoError(t, err)
	defer mem.Close()
	assert.Empty(t, mem.Checks)

	dir := t.TempDir()
	fs, err := OpenStorage(ctx, StorageConfig{Driver: DriverFile, Dir: dir}, zap.NewNop())
	require.NoError(t, err)
	defer fs.Close()
	require.Len(t, fs.Checks, 2)
	for _, c := range fs.Checks {
		assert.NoError(t, c.Func(ctx), c.Name)
	}

	require.NoError(t, fs.KV.Set(ctx, storage.KeyCart, []byte("[]")))
	got, err := fs.KV.Get(ctx, storage.KeyCart)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	_, err = OpenStorage(ctx, StorageConfig{Driver: "redis"}, zap.NewNop())
	assert.Error(t, err)
}

func defaultCheckout() CheckoutConfig {
	return CheckoutConfig{DeliveryFee: "10000", TaxRate: "0.18", LoginPath: "/login"}
}
