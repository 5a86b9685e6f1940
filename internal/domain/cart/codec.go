package cart

import (
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

// Encode serialises c as a JSON array of
// {"id","title","price","quantity","image","category",...extra}.
func Encode(c Cart) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ArrStart()
	for _, l := range c {
		encodeLine(e, l)
	}
	e.ArrEnd()

	return append([]byte(nil), e.Bytes()...)
}

func encodeLine(e *jx.Encoder, l Line) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(l.ProductID)
	e.FieldStart("title")
	e.Str(l.Title)
	e.FieldStart("price")
	e.Num(jx.Num(l.UnitPrice.String()))
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	if l.Image != "" {
		e.FieldStart("image")
		e.Str(l.Image)
	}
	if l.Category != "" {
		e.FieldStart("category")
		e.Str(l.Category)
	}
	keys := make([]string, 0, len(l.Extra))
	for k := range l.Extra {
		if !isLineKey(k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		e.FieldStart(k)
		e.Raw(l.Extra[k])
	}
	e.ObjEnd()
}

// Decode parses a stored cart. A document that is not a JSON array is an
// error. Inside the array, records without an id or with a quantity below 1
// are dropped, quantities above MaxQuantity are capped, and repeated ids are
// merged into the first occurrence so the returned cart always satisfies the
// line invariants.
func Decode(data []byte) (Cart, error) {
	c := Cart{}
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Array {
		return nil, errors.Errorf("cart: expected array, got %s", d.Next())
	}
	if err := d.Arr(func(d *jx.Decoder) error {
		l, ok, err := decodeLine(d)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if i := c.Index(l.ProductID); i >= 0 {
			c[i].Quantity = addQuantity(c[i].Quantity, l.Quantity)
			return nil
		}
		c = append(c, l)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return c, nil
}

// decodeLine reads one record. ok is false for records that parse but cannot
// form a valid line.
func decodeLine(d *jx.Decoder) (l Line, ok bool, err error) {
	if d.Next() != jx.Object {
		return Line{}, false, d.Skip()
	}
	valid := true
	err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			if d.Next() != jx.String && d.Next() != jx.Number {
				valid = false
				return d.Skip()
			}
			v, err := product.DecodeID(d)
			if err != nil {
				return err
			}
			l.ProductID = v
		case "title", "name":
			if d.Next() != jx.String {
				return d.Skip()
			}
			v, err := d.Str()
			if err != nil {
				return err
			}
			l.Title = v
		case "price":
			if d.Next() != jx.String && d.Next() != jx.Number {
				valid = false
				return d.Skip()
			}
			v, err := product.DecodePrice(d)
			if err != nil {
				valid = false
				return nil
			}
			l.UnitPrice = v
		case "quantity":
			if d.Next() != jx.Number {
				valid = false
				return d.Skip()
			}
			n, err := d.Num()
			if err != nil {
				return err
			}
			q, err := quantity(n)
			if err != nil {
				valid = false
				return nil
			}
			l.Quantity = q
		case "image":
			if d.Next() != jx.String {
				return d.Skip()
			}
			v, err := d.Str()
			if err != nil {
				return err
			}
			l.Image = v
		case "category":
			if d.Next() != jx.String {
				return d.Skip()
			}
			v, err := d.Str()
			if err != nil {
				return err
			}
			l.Category = v
		default:
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			if l.Extra == nil {
				l.Extra = make(map[string]jx.Raw)
			}
			l.Extra[string(key)] = append(jx.Raw(nil), raw...)
		}
		return nil
	})
	if err != nil {
		return Line{}, false, err
	}
	if !valid || l.ProductID == "" || l.Quantity < 1 {
		return Line{}, false, nil
	}
	return l, true, nil
}

func quantity(n jx.Num) (int, error) {
	v, err := decimal.NewFromString(n.String())
	if err != nil {
		return 0, err
	}
	if !v.IsInteger() {
		return 0, errors.New("fractional quantity")
	}
	switch {
	case v.LessThan(decimal.NewFromInt(1)):
		return 0, nil
	case v.GreaterThan(decimal.NewFromInt(MaxQuantity)):
		return MaxQuantity, nil
	}
	return int(v.IntPart()), nil
}
