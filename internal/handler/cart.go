package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

// GetCart returns the lines, unit count and totals.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, http.StatusOK, h.cart.Load(r.Context()))
}

// AddCartItem adds {"product", "quantity"} to the cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	req, ok := h.itemFromBody(w, r)
	if !ok {
		return
	}
	c, err := h.cart.Add(r.Context(), req.Product, req.Quantity)
	if err != nil {
		h.mapCartError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, c)
}

// IncreaseCartItem adds one unit of the line {id}.
func (h *Handler) IncreaseCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.Increase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.mapCartError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, c)
}

// DecreaseCartItem removes one unit of the line {id}, dropping it at zero.
func (h *Handler) DecreaseCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.Decrease(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.mapCartError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, c)
}

// RemoveCartItem drops the line {id}.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.Remove(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.mapCartError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, c)
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context()); err != nil {
		h.mapCartError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, c cart.Cart) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		e.Raw(cart.Encode(c))
		e.FieldStart("count")
		e.Int(c.Count())
		e.FieldStart("totals")
		h.encodeTotals(e, cart.ComputeTotals(c, h.cart.Rates()))
		e.ObjEnd()
	})
}

// mapCartError converts cart and wishlist errors to responses.
func (h *Handler) mapCartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, cart.ErrInvalidQuantity.Error())
	case errors.Is(err, product.ErrMissingID):
		writeError(w, http.StatusBadRequest, "product id is required")
	default:
		zctx.From(r.Context()).Error("Cart update failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not save changes")
	}
}
