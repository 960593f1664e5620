package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrdersHandler struct {
	orderService domain.OrderService
	logger       *zap.Logger
}

func NewOrdersHandler(orderService domain.OrderService, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		orderService: orderService,
		logger:       logger,
	}
}

type placeOrderRequest struct {
	Items           []domain.OrderItemSpec `json:"items"`
	ShippingAddress string                 `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	WashQuantity    int32                  `json:"wash_quantity,omitempty"`
}

type placeOrderResponse struct {
	OrderID   int64              `json:"order_id"`
	OrderCode string             `json:"order_code"`
	Total     int64              `json:"total"`
	Status    domain.OrderStatus `json:"status"`
}

func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	order, err := h.orderService.PlaceOrder(r.Context(), caller, domain.PlaceOrderInput{
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		WashQuantity:    req.WashQuantity,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to place order", zap.Error(err))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, placeOrderResponse{
		OrderID:   order.ID,
		OrderCode: order.Code,
		Total:     order.Total,
		Status:    order.Status,
	})
}

func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := orderIDParam(r)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	order, err := h.orderService.CancelOrder(r.Context(), caller, orderID)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to cancel order", zap.Error(err), zap.Int64("order_id", orderID))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]domain.OrderStatus{"status": order.Status})
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := orderIDParam(r)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	order, err := h.orderService.SetStatus(r.Context(), caller, orderID, domain.OrderStatus(req.Status))
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to update order status", zap.Error(err), zap.Int64("order_id", orderID))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]domain.OrderStatus{"status": order.Status})
}

type assignDriverRequest struct {
	DriverID int64 `json:"driver_id"`
}

type assignDriverResponse struct {
	Status domain.OrderStatus `json:"status"`
	Driver *domain.Driver     `json:"driver"`
}

func (h *OrdersHandler) AssignDriver(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := orderIDParam(r)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var req assignDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	order, driver, err := h.orderService.AssignDriver(r.Context(), caller, orderID, req.DriverID)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to assign driver", zap.Error(err), zap.Int64("order_id", orderID))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, assignDriverResponse{
		Status: order.Status,
		Driver: driver,
	})
}

func (h *OrdersHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := orderIDParam(r)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	order, err := h.orderService.MarkDelivered(r.Context(), caller, orderID)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to mark order delivered", zap.Error(err), zap.Int64("order_id", orderID))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]domain.OrderStatus{"status": order.Status})
}

func (h *OrdersHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orders, err := h.orderService.GetOrders(r.Context(), caller)
	if err != nil {
		h.logger.Error("failed to get orders", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, orders)
}

func (h *OrdersHandler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	code := chi.URLParam(r, "orderCode")
	order, err := h.orderService.TrackOrder(r.Context(), caller, code)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to track order", zap.Error(err), zap.String("order_code", code))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, order)
}

// orderIDParam извлекает ID заказа из пути запроса
func orderIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
}

// writeJSON пишет JSON-ответ с заданным статусом
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
