package checkout

import (
	"context"
	"strconv"
	"testing"

	"github.com/cucumber/godog"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/auth"
	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/domain/receipt"
	"github.com/xenking/kart-storefront/internal/storage"
	"github.com/xenking/kart-storefront/internal/storage/memory"
	"github.com/xenking/kart-storefront/pkg/broadcast"
)

type checkoutFeature struct {
	flow     *Flow
	cart     *cart.Service
	sessions *auth.Sessions
	orders   *mockOrderAPI

	res *Result
	err error
}

func (c *checkoutFeature) reset() {
	kv := memory.New()
	c.cart = cart.NewService(
		cart.NewStore(kv, storage.KeyCart, nil),
		broadcast.NewTopic[broadcast.Signal](broadcast.TopicCartChanged),
		cart.DefaultRates,
		nil,
	)
	c.sessions = auth.NewSessions(kv)
	c.orders = &mockOrderAPI{}
	c.flow = NewFlow(c.cart, c.sessions, c.orders, receipt.NewKVRepository(kv), Config{}, nil)
	c.res = nil
	c.err = nil
}

func (c *checkoutFeature) theCartContains(ctx context.Context, table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		price, err := decimal.NewFromString(row.Cells[1].Value)
		if err != nil {
			return errors.Wrap(err, "price")
		}
		qty, err := strconv.Atoi(row.Cells[2].Value)
		if err != nil {
			return errors.Wrap(err, "quantity")
		}
		p := product.Product{ID: row.Cells[0].Value, Name: row.Cells[0].Value, Price: price}
		if _, err := c.cart.Add(ctx, p, qty); err != nil {
			return err
		}
	}
	return nil
}

func (c *checkoutFeature) theCartIsEmptied(ctx context.Context) error {
	return c.cart.Clear(ctx)
}

func (c *checkoutFeature) theShopperIsSignedIn(ctx context.Context) error {
	return c.sessions.Login(ctx, auth.Session{Token: "tok-feature", Username: "shopper"})
}

func (c *checkoutFeature) theOrderAPIAcceptsOrdersAs(id string) error {
	c.orders.place = func(context.Context) (*PlacedOrder, error) {
		return &PlacedOrder{ID: id}, nil
	}
	return nil
}

func (c *checkoutFeature) theOrderAPIRejectsOrdersWith(msg string) error {
	c.orders.place = func(context.Context) (*PlacedOrder, error) {
		return nil, &RejectedError{StatusCode: 422, Message: msg}
	}
	return nil
}

func (c *checkoutFeature) theOrderAPIIsUnreachable() error {
	c.orders.place = func(context.Context) (*PlacedOrder, error) {
		return nil, &NetworkError{Err: errors.New("dial tcp: connection refused")}
	}
	return nil
}

func (c *checkoutFeature) theShopperSubmitsACompleteCheckoutForm(ctx context.Context) error {
	c.res, c.err = c.flow.Submit(ctx, validDraft())
	return nil
}

func (c *checkoutFeature) result() (*Result, error) {
	if c.err != nil {
		return nil, errors.Wrap(c.err, "submit")
	}
	if c.res == nil {
		return nil, errors.New("no submission result")
	}
	return c.res, nil
}

func (c *checkoutFeature) theOrderIsPlacedAs(id string) error {
	res, err := c.result()
	if err != nil {
		return err
	}
	if res.State != StateSuccess || res.OrderID != id {
		return errors.Errorf("expected order %q placed, got state %s order %q", id, res.State, res.OrderID)
	}
	return nil
}

func (c *checkoutFeature) theShopperIsSentTo(path string) error {
	res, err := c.result()
	if err != nil {
		return err
	}
	if res.RedirectTo != path {
		return errors.Errorf("expected redirect to %q, got %q", path, res.RedirectTo)
	}
	return nil
}

func (c *checkoutFeature) theMessageIsShown(msg string) error {
	res, err := c.result()
	if err != nil {
		return err
	}
	if res.Message != msg {
		return errors.Errorf("expected message %q, got %q", msg, res.Message)
	}
	return nil
}

func (c *checkoutFeature) theCartHoldsItems(ctx context.Context, n int) error {
	if got := c.cart.Count(ctx); got != n {
		return errors.Errorf("expected %d items in cart, got %d", n, got)
	}
	return nil
}

func (c *checkoutFeature) theCartTotalsAre(ctx context.Context, subtotal, tax, total int64) error {
	t := c.cart.Totals(ctx)
	for _, check := range []struct {
		name string
		got  decimal.Decimal
		want int64
	}{
		{"subtotal", t.Subtotal, subtotal},
		{"tax", t.Tax, tax},
		{"total", t.Total, total},
	} {
		if !check.got.Equal(decimal.NewFromInt(check.want)) {
			return errors.Errorf("expected %s %d, got %s", check.name, check.want, check.got)
		}
	}
	return nil
}

func (c *checkoutFeature) checkoutIsBlockedBecauseTheCartIsEmpty() error {
	if !errors.Is(c.err, ErrEmptyCart) {
		return errors.Errorf("expected ErrEmptyCart, got %v", c.err)
	}
	return nil
}

func (c *checkoutFeature) theOrderAPIWasNotCalled() error {
	if n := len(c.orders.placeCalls()); n != 0 {
		return errors.Errorf("expected no order API calls, got %d", n)
	}
	return nil
}

func initializeCheckoutScenario(ctx *godog.ScenarioContext) {
	c := &checkoutFeature{}

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		c.reset()
		return ctx, nil
	})

	ctx.Step(`^the cart contains:$`, c.theCartContains)
	ctx.Step(`^the cart is emptied$`, c.theCartIsEmptied)
	ctx.Step(`^the shopper is signed in$`, c.theShopperIsSignedIn)
	ctx.Step(`^the order API accepts orders as "([^"]*)"$`, c.theOrderAPIAcceptsOrdersAs)
	ctx.Step(`^the order API rejects orders with "([^"]*)"$`, c.theOrderAPIRejectsOrdersWith)
	ctx.Step(`^the order API is unreachable$`, c.theOrderAPIIsUnreachable)

	ctx.Step(`^the shopper submits a complete checkout form$`, c.theShopperSubmitsACompleteCheckoutForm)

	ctx.Step(`^the order is placed as "([^"]*)"$`, c.theOrderIsPlacedAs)
	ctx.Step(`^the shopper is sent to "([^"]*)"$`, c.theShopperIsSentTo)
	ctx.Step(`^the message "([^"]*)" is shown$`, c.theMessageIsShown)
	ctx.Step(`^the cart holds (\d+) items?$`, c.theCartHoldsItems)
	ctx.Step(`^the cart subtotal is (\d+), tax (\d+) and total (\d+)$`, c.theCartTotalsAre)
	ctx.Step(`^checkout is blocked because the cart is empty$`, c.checkoutIsBlockedBecauseTheCartIsEmpty)
	ctx.Step(`^the order API was not called$`, c.theOrderAPIWasNotCalled)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeCheckoutScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
