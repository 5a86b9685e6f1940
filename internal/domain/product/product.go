package product

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ErrMissingID is returned when a product record carries no identifier.
var ErrMissingID = errors.New("product id required")

// Product is the catalog record a display component hands to the cart.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
	Image    string
	// Attributes holds any further catalog fields verbatim.
	Attributes map[string]jx.Raw
}

// Decode parses a catalog product JSON object. Known fields are typed; the
// rest is kept in Attributes. Both "name" and "title" are accepted for the
// display name, and the price may be a number or a numeric string.
func Decode(data []byte) (Product, error) {
	var p Product
	d := jx.DecodeBytes(data)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			v, err := DecodeID(d)
			if err != nil {
				return errors.Wrap(err, "id")
			}
			p.ID = v
		case "name", "title":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, string(key))
			}
			p.Name = v
		case "price":
			v, err := DecodePrice(d)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			p.Price = v
		case "category":
			v, err := decodeOptionalStr(d)
			if err != nil {
				return errors.Wrap(err, "category")
			}
			p.Category = v
		case "image":
			v, err := decodeOptionalStr(d)
			if err != nil {
				return errors.Wrap(err, "image")
			}
			p.Image = v
		default:
			raw, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, string(key))
			}
			if p.Attributes == nil {
				p.Attributes = make(map[string]jx.Raw)
			}
			p.Attributes[string(key)] = append(jx.Raw(nil), raw...)
		}
		return nil
	}); err != nil {
		return Product{}, errors.Wrap(err, "decode product")
	}
	if p.ID == "" {
		return Product{}, ErrMissingID
	}
	return p, nil
}

// DecodeID reads an identifier that may be encoded as a string or a number.
func DecodeID(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", errors.Errorf("unexpected %s", d.Next())
	}
}

// DecodePrice reads a decimal encoded as a JSON number or numeric string.
func DecodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.Errorf("unexpected %s", d.Next())
	}
}

func decodeOptionalStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
