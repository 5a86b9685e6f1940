package handler

import (
	"io"
	"net/http"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes {"code","message"} plus any extra fields.
func writeError(w http.ResponseWriter, code int, msg string, extra ...func(e *jx.Encoder)) {
	writeJSON(w, code, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(code)
		e.FieldStart("message")
		e.Str(msg)
		for _, f := range extra {
			f(e)
		}
		e.ObjEnd()
	})
}

func strField(name, value string) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		e.FieldStart(name)
		e.Str(value)
	}
}

func fieldsField(fields map[string]string) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		slices.Sort(names)

		e.FieldStart("fields")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(fields[name])
		}
		e.ObjEnd()
	}
}

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func (h *Handler) encodeTotals(e *jx.Encoder, t cart.Totals) {
	e.ObjStart()
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"subtotal", t.Subtotal},
		{"delivery_fee", t.DeliveryFee},
		{"tax", t.Tax},
		{"total", t.Total},
	} {
		e.FieldStart(f.name)
		encodeDecimal(e, f.value)
		e.FieldStart(f.name + "_formatted")
		e.Str(h.formatter.Format(f.value))
	}
	e.ObjEnd()
}

// readBody reads a bounded request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

// itemRequest is the body of add-to-cart and add-to-wishlist:
// {"product": {...}, "quantity": n}. Quantity defaults to 1.
type itemRequest struct {
	Product  product.Product
	Quantity int
}

func decodeItemRequest(data []byte) (itemRequest, error) {
	req := itemRequest{Quantity: 1}
	var (
		raw jx.Raw
		err error
	)
	if err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "product":
			raw, err = d.Raw()
			return err
		case "quantity":
			req.Quantity, err = d.Int()
			return errors.Wrap(err, "quantity")
		default:
			return d.Skip()
		}
	}); err != nil {
		return itemRequest{}, errors.Wrap(err, "decode item")
	}
	if raw == nil {
		return itemRequest{}, errors.New("missing product")
	}
	req.Product, err = product.Decode(raw)
	if err != nil {
		return itemRequest{}, err
	}
	return req, nil
}

// decodeStrings reads a flat object of string fields; other values are
// ignored.
func decodeStrings(data []byte) (map[string]string, error) {
	out := make(map[string]string)
	if err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() != jx.String {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		out[string(key)] = v
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode body")
	}
	return out, nil
}
