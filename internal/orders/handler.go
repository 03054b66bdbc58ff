package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/internal/checkout"
	"github.com/vendexhq/commerce-engine/internal/store"
	"github.com/vendexhq/commerce-engine/pkg/models"
)

// OrderReconciler is implemented by checkout.Reconciler.
type OrderReconciler interface {
	Reconcile(ctx context.Context, sessionID string) (*models.Order, error)
}

// Handler serves the shopper-facing order endpoints and the admin
// status-advance endpoint.
type Handler struct {
	reconciler OrderReconciler
	service    *Service
	validate   *validator.Validate
	logger     *logrus.Logger
}

func NewHandler(reconciler OrderReconciler, service *Service, logger *logrus.Logger) *Handler {
	return &Handler{
		reconciler: reconciler,
		service:    service,
		validate:   validator.New(),
		logger:     logger,
	}
}

// CheckoutSuccess is the landing endpoint the payment provider
// redirects to after checkout. Any failure degrades to a redirect home
// rather than showing the shopper an error page.
func (h *Handler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	order, err := h.reconciler.Reconcile(r.Context(), sessionID)
	if err != nil {
		if !errors.Is(err, checkout.ErrMissingSession) {
			h.logger.WithError(err).WithField("session_id", sessionID).Error("Checkout reconciliation failed")
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.respondWithJSON(w, http.StatusOK, models.OrderResponse{
		Success: true,
		Message: "Order confirmed",
		Order:   order,
	})
}

func (h *Handler) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orderID := vars["id"]

	info, err := h.service.GetStatus(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.WithError(err).WithField("order_id", orderID).Error("Failed to get order status")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to get order status")
		return
	}

	h.respondWithJSON(w, http.StatusOK, info)
}

type notifyRequest struct {
	Method string `json:"method" validate:"required,oneof=email sms"`
	Value  string `json:"value" validate:"required"`
}

func (h *Handler) EnableNotifications(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orderID := vars["id"]

	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "method must be email or sms and value is required")
		return
	}

	if _, err := h.service.EnableNotifications(r.Context(), orderID, req.Method, req.Value); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		if errors.Is(err, ErrInvalidMethod) {
			h.respondWithError(w, http.StatusBadRequest, "method must be email or sms")
			return
		}
		h.logger.WithError(err).WithField("order_id", orderID).Error("Failed to enable notifications")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to enable notifications")
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Notifications enabled",
	})
}

type advanceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdvanceOrderStatus is admin-only; the auth middleware runs before it.
func (h *Handler) AdvanceOrderStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orderID := vars["id"]

	var req advanceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "status is required")
		return
	}

	order, err := h.service.AdvanceStatus(r.Context(), orderID, req.Status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		if errors.Is(err, ErrInvalidStatus) {
			h.respondWithError(w, http.StatusBadRequest, "Unknown status value")
			return
		}
		h.logger.WithError(err).WithField("order_id", orderID).Error("Failed to advance order status")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to advance order status")
		return
	}

	h.respondWithJSON(w, http.StatusOK, models.OrderResponse{
		Success: true,
		Message: "Order status updated",
		Order:   order,
	})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
