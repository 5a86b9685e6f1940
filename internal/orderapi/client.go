// Package orderapi is the HTTP client for the remote order service.
package orderapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/checkout"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

const (
	defaultTimeout = 30 * time.Second
	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Options configures a Client.
type Options struct {
	Timeout        time.Duration
	Transport      http.RoundTripper
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client implements checkout.OrderAPI over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	lg         *zap.Logger
}

var _ checkout.OrderAPI = (*Client)(nil)

// New creates a Client for the order service rooted at baseURL.
func New(baseURL string, opts Options, lg *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}

	var otelOpts []otelhttp.Option
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}
	if opts.MeterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(opts.MeterProvider))
	}

	return &Client{
		baseURL: strings.TrimSuffix(u.String(), "/"),
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(opts.Transport, otelOpts...),
		},
		lg: lg,
	}, nil
}

// PlaceOrder submits req and returns the id the service assigned.
func (c *Client) PlaceOrder(ctx context.Context, token, idempotencyKey string, req checkout.OrderRequest) (*checkout.PlacedOrder, error) {
	body, err := c.do(ctx, "/orders/", token, idempotencyKey, encodeOrder(req))
	if err != nil {
		return nil, err
	}

	id, err := decodeOrderID(body)
	if err != nil {
		c.lg.Warn("Unreadable order response", zap.Error(err))
		return nil, &checkout.RejectedError{
			StatusCode: http.StatusOK,
			Message:    checkout.MessageSubmitFailed,
		}
	}
	return &checkout.PlacedOrder{ID: id}, nil
}

// CancelOrder asks the service to cancel orderID.
func (c *Client) CancelOrder(ctx context.Context, token, orderID string) error {
	if orderID == "" {
		return errors.New("empty order id")
	}
	_, err := c.do(ctx, "/orders/"+url.PathEscape(orderID)+"/cancel/", token, "", nil)
	return err
}

func (c *Client) do(ctx context.Context, path, token, idempotencyKey string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.lg.Warn("Order API request failed", zap.String("path", path), zap.Error(err))
		return nil, &checkout.NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, checkout.ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.lg.Info("Order API rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &checkout.RejectedError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &checkout.NetworkError{Err: errors.Wrap(err, "read response")}
	}
	return data, nil
}

func encodeOrder(r checkout.OrderRequest) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart(checkout.FieldCustomerName)
	e.Str(r.CustomerName)
	e.FieldStart(checkout.FieldCustomerEmail)
	e.Str(r.CustomerEmail)
	e.FieldStart(checkout.FieldCustomerPhone)
	e.Str(r.CustomerPhone)
	e.FieldStart(checkout.FieldDeliveryAddress)
	e.Str(r.DeliveryAddress)
	e.FieldStart(checkout.FieldDeliveryCity)
	e.Str(r.DeliveryCity)
	e.FieldStart(checkout.FieldDeliveryNotes)
	e.Str(r.DeliveryNotes)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range r.Items {
		e.ObjStart()
		e.FieldStart("item_id")
		e.Str(it.ItemID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()

	return append([]byte(nil), e.Bytes()...)
}

// decodeOrderID reads "id", falling back to "order_id".
func decodeOrderID(data []byte) (string, error) {
	var id, orderID string
	if err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			v, err := product.DecodeID(d)
			if err != nil {
				return errors.Wrap(err, "id")
			}
			id = v
		case "order_id":
			v, err := product.DecodeID(d)
			if err != nil {
				return errors.Wrap(err, "order_id")
			}
			orderID = v
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return "", errors.Wrap(err, "decode order response")
	}
	if id == "" {
		id = orderID
	}
	if id == "" {
		return "", errors.New("order response has no id")
	}
	return id, nil
}

// errorMessage extracts "error", then "detail", from an error body.
func errorMessage(data []byte) string {
	var msg, detail string
	_ = jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "error":
			if d.Next() != jx.String {
				return d.Skip()
			}
			v, err := d.Str()
			msg = v
			return err
		case "detail":
			if d.Next() != jx.String {
				return d.Skip()
			}
			v, err := d.Str()
			detail = v
			return err
		default:
			return d.Skip()
		}
	})
	switch {
	case strings.TrimSpace(msg) != "":
		return msg
	case strings.TrimSpace(detail) != "":
		return detail
	default:
		return checkout.MessageSubmitFailed
	}
}
