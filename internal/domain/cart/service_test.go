package cart

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/storage"
	"github.com/xenking/kart-storefront/internal/storage/memory"
	"github.com/xenking/kart-storefront/pkg/broadcast"
)

func newTestService(kv storage.KV) (*Service, *int) {
	topic := broadcast.NewTopic[broadcast.Signal](broadcast.TopicCartChanged)
	signals := new(int)
	topic.Subscribe(func(broadcast.Signal) { *signals++ })
	return NewService(NewStore(kv, storage.KeyCart, nil), topic, DefaultRates, nil), signals
}

func TestService_MutationsPersistAndSignal(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	svc, signals := newTestService(kv)
	p1 := newTestProduct("p1", "Widget", 25000)
	p2 := newTestProduct("p2", "Gadget", 45000)

	_, err := svc.Add(ctx, p1, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, p1, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, p2, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, *signals)

	// A second service over the same storage sees the persisted state.
	other, _ := newTestService(kv)
	assert.Equal(t, 3, other.Count(ctx))
	assert.True(t, other.Contains(ctx, "p2"))
	assert.True(t, d("122100").Equal(other.Totals(ctx).Total))

	c, err := svc.Decrease(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, c[0].Quantity)

	c, err = svc.Increase(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, 2, c[1].Quantity)

	c, err = svc.Remove(ctx, "p2")
	require.NoError(t, err)
	require.Len(t, c, 1)
	assert.Equal(t, 6, *signals)

	require.NoError(t, svc.Clear(ctx))
	assert.Empty(t, svc.Load(ctx))
	assert.Equal(t, 7, *signals)
}

func TestService_AddRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, signals := newTestService(memory.New())

	_, err := svc.Add(ctx, newTestProduct("p1", "Widget", 1), 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Add(ctx, product.Product{Name: "no id"}, 1)
	require.ErrorIs(t, err, product.ErrMissingID)

	assert.Equal(t, 0, *signals)
}

func TestService_SaveFailureDoesNotSignal(t *testing.T) {
	svc, signals := newTestService(&failingKV{
		getErr: storage.ErrNotFound,
		setErr: errors.New("quota exceeded"),
	})

	_, err := svc.Add(context.Background(), newTestProduct("p1", "Widget", 1), 1)
	require.Error(t, err)
	assert.Equal(t, 0, *signals)
}

func TestService_SubscribeUnsubscribe(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(memory.New())

	var seen int
	unsubscribe := svc.Subscribe(func(broadcast.Signal) { seen++ })

	_, err := svc.Increase(ctx, "missing")
	require.NoError(t, err)
	unsubscribe()
	_, err = svc.Increase(ctx, "missing")
	require.NoError(t, err)

	assert.Equal(t, 1, seen)
}

func TestService_CatalogFieldsDoNotShadowLineFields(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	svc, _ := newTestService(kv)

	p, err := product.Decode([]byte(`{"id":"p1","name":"Widget","price":25000,"quantity":50,"rating":4.5}`))
	require.NoError(t, err)

	_, err = svc.Add(ctx, p, 1)
	require.NoError(t, err)

	c := svc.Load(ctx)
	require.Len(t, c, 1)
	assert.Equal(t, 1, c[0].Quantity)
	assert.Equal(t, jx.Raw(`4.5`), c[0].Extra["rating"])
	assert.NotContains(t, c[0].Extra, "quantity")

	raw, err := kv.Get(ctx, storage.KeyCart)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), `"quantity"`))
}

func TestService_AddRefusesQuantityBeyondMax(t *testing.T) {
	ctx := context.Background()
	svc, signals := newTestService(memory.New())
	p := newTestProduct("p1", "Widget", 10)

	_, err := svc.Add(ctx, p, math.MaxInt)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	c, err := svc.Add(ctx, p, MaxQuantity-1)
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity-1, c[0].Quantity)

	_, err = svc.Add(ctx, p, 2)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 1, *signals, "a refused add saves and signals nothing")
	assert.Equal(t, MaxQuantity-1, svc.Count(ctx))

	c, err = svc.Increase(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, c[0].Quantity)

	c, err = svc.Increase(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, c[0].Quantity)
	assert.Equal(t, MaxQuantity, svc.Count(ctx))
}
