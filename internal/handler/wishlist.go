package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-storefront/internal/domain/cart"
)

// GetWishlist returns the saved products.
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	writeWishlist(w, h.wishlist.Load(r.Context()))
}

// AddWishlistItem saves {"product"}.
func (h *Handler) AddWishlistItem(w http.ResponseWriter, r *http.Request) {
	req, ok := h.itemFromBody(w, r)
	if !ok {
		return
	}
	list, err := h.wishlist.Add(r.Context(), req.Product)
	if err != nil {
		h.mapCartError(w, r, err)
		return
	}
	writeWishlist(w, list)
}

// RemoveWishlistItem drops {id} from the wishlist.
func (h *Handler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	list, err := h.wishlist.Remove(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.mapCartError(w, r, err)
		return
	}
	writeWishlist(w, list)
}

// ToggleWishlistItem saves the product when absent and removes it when
// present. The body carries the product so it can be saved.
func (h *Handler) ToggleWishlistItem(w http.ResponseWriter, r *http.Request) {
	req, ok := h.itemFromBody(w, r)
	if !ok {
		return
	}
	if req.Product.ID != chi.URLParam(r, "id") {
		writeError(w, http.StatusBadRequest, "product id does not match path")
		return
	}

	saved, err := h.wishlist.Toggle(r.Context(), req.Product)
	if err != nil {
		h.mapCartError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("saved")
		e.Bool(saved)
		e.ObjEnd()
	})
}

func (h *Handler) itemFromBody(w http.ResponseWriter, r *http.Request) (itemRequest, bool) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return itemRequest{}, false
	}
	req, err := decodeItemRequest(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return itemRequest{}, false
	}
	return req, true
}

func writeWishlist(w http.ResponseWriter, list cart.Cart) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		e.Raw(cart.Encode(list))
		e.ObjEnd()
	})
}
