package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/auth"
	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/checkout"
	"github.com/xenking/kart-storefront/internal/domain/receipt"
)

// Checkout submits the checkout form against the current cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	fields, err := decodeStrings(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.checkout.Submit(r.Context(), checkout.Draft{
		CustomerName:    fields[checkout.FieldCustomerName],
		CustomerEmail:   fields[checkout.FieldCustomerEmail],
		CustomerPhone:   fields[checkout.FieldCustomerPhone],
		DeliveryAddress: fields[checkout.FieldDeliveryAddress],
		DeliveryCity:    fields[checkout.FieldDeliveryCity],
		DeliveryNotes:   fields[checkout.FieldDeliveryNotes],
	})
	if err != nil {
		mapCheckoutError(w, r, err)
		return
	}

	if res.State == checkout.StateSuccess {
		writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("state")
			e.Str(res.State.String())
			e.FieldStart("order_id")
			e.Str(res.OrderID)
			e.FieldStart("redirect_to")
			e.Str(res.RedirectTo)
			e.FieldStart("totals")
			h.encodeTotals(e, res.Totals)
			e.ObjEnd()
		})
		return
	}

	status := http.StatusBadGateway
	switch res.Failure {
	case checkout.FailureUnauthenticated:
		status = http.StatusUnauthorized
	case checkout.FailureRejected:
		status = http.StatusUnprocessableEntity
	}
	extra := []func(e *jx.Encoder){
		strField("state", res.State.String()),
		strField("failure", string(res.Failure)),
	}
	if res.RedirectTo != "" {
		extra = append(extra, strField("redirect_to", res.RedirectTo))
	}
	writeError(w, status, res.Message, extra...)
}

// mapCheckoutError converts errors raised before submission to responses.
func mapCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "please correct the highlighted fields", fieldsField(verr.Fields))
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusConflict, "your cart is empty")
	case errors.Is(err, checkout.ErrSubmissionInProgress):
		writeError(w, http.StatusConflict, "an order is already being placed")
	default:
		zctx.From(r.Context()).Error("Checkout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, checkout.MessageSubmitFailed)
	}
}

// GetOrder returns the confirmation data of a placed order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	rec, err := h.checkout.Receipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, receipt.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		zctx.From(r.Context()).Error("Read receipt failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load order")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("order_id")
		e.Str(rec.OrderID)
		e.FieldStart("status")
		e.Str(string(rec.Status))
		e.FieldStart("customer_name")
		e.Str(rec.CustomerName)
		e.FieldStart("delivery_address")
		e.Str(rec.DeliveryAddress)
		e.FieldStart("delivery_city")
		e.Str(rec.DeliveryCity)
		e.FieldStart("placed_at")
		e.Str(rec.PlacedAt.UTC().Format(time.RFC3339))
		e.FieldStart("items")
		e.Raw(cart.Encode(rec.Lines))
		e.FieldStart("totals")
		h.encodeTotals(e, rec.Totals)
		e.ObjEnd()
	})
}

// CancelOrder cancels a placed order through the order API.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	err := h.checkout.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var (
		rejected *checkout.RejectedError
		netErr   *checkout.NetworkError
	)
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, checkout.MessageUnauthenticated)
	case errors.As(err, &rejected):
		writeError(w, http.StatusUnprocessableEntity, rejected.Message)
	case errors.As(err, &netErr):
		writeError(w, http.StatusBadGateway, checkout.MessageNetworkFailure)
	default:
		zctx.From(r.Context()).Error("Cancel order failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not cancel order")
	}
}
