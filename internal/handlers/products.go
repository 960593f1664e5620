package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProductsHandler struct {
	productService domain.ProductService
	logger         *zap.Logger
}

func NewProductsHandler(productService domain.ProductService, logger *zap.Logger) *ProductsHandler {
	return &ProductsHandler{
		productService: productService,
		logger:         logger,
	}
}

type createProductRequest struct {
	Name     string `json:"name"`
	MarketID int64  `json:"market_id"`
	Price    int64  `json:"price"`
	Quantity int32  `json:"quantity"`
}

func (h *ProductsHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	product, err := h.productService.CreateProduct(r.Context(), caller, &domain.Product{
		Name:     req.Name,
		MarketID: req.MarketID,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to create product", zap.Error(err))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, product)
}

func (h *ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	product, err := h.productService.GetProduct(r.Context(), productID)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to get product", zap.Error(err), zap.Int64("product_id", productID))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, product)
}
