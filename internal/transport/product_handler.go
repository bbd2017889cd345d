package transport

import (
	"errors"
	"net/http"

	"gadget-grove/internal/domain"
	"gadget-grove/internal/logger"
	"gadget-grove/internal/middleware"
	"gadget-grove/internal/repository"
	"gadget-grove/internal/service"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Client-facing messages
const (
	MsgInvalidProductID      = "Invalid product ID"
	MsgProductNotFound       = "Product not found"
	MsgMissingRequiredFields = "Missing required fields"
	MsgInvalidPrice          = "Invalid price"
	MsgInvalidRequestBody    = "Invalid request body"
	MsgProductAdded          = "Product added successfully"
)

// ListProductsResponse represents the product listing
type ListProductsResponse struct {
	Status   int               `json:"status"`
	Count    int               `json:"count"`
	Products []*domain.Product `json:"products"`
}

// CreateProductResponse represents a successful creation
type CreateProductResponse struct {
	Message    string             `json:"message"`
	InsertedID primitive.ObjectID `json:"insertedId"`
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
	strictNotFound bool
}

// NewProductHandler creates a new ProductHandler. With strictNotFound set,
// unknown identifiers answer 404 instead of a null body.
func NewProductHandler(productService service.ProductService, logger *zap.Logger, strictNotFound bool) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
		strictNotFound: strictNotFound,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/{id}", h.GetProduct)
	})
}

// ListProducts handles listing every product, newest first
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.ListProducts(r.Context())
	if err != nil {
		logger.ForRequest(h.logger, r).Error("Failed to list products", zap.Error(err))
		middleware.RespondWithServerError(w)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ListProductsResponse{
		Status:   http.StatusOK,
		Count:    len(products),
		Products: products,
	})
}

// GetProduct handles fetching a single product
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.productService.GetProduct(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidProductID):
			middleware.RespondWithError(w, http.StatusBadRequest, MsgInvalidProductID)
		case errors.Is(err, repository.ErrProductNotFound):
			if h.strictNotFound {
				middleware.RespondWithError(w, http.StatusNotFound, MsgProductNotFound)
				return
			}
			middleware.RespondWithJSON(w, http.StatusOK, nil)
		default:
			logger.ForRequest(h.logger, r).Error("Failed to get product",
				zap.String("product_id", id),
				zap.Error(err),
			)
			middleware.RespondWithServerError(w)
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// CreateProduct handles product creation
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.logger, r)

	payload, err := middleware.DecodeJSONObject(w, r)
	if err != nil {
		log.Debug("Create product decode failed", zap.Error(err))
		middleware.RespondWithMessage(w, http.StatusBadRequest, MsgInvalidRequestBody)
		return
	}

	req, err := NewCreateProductRequest(payload)
	if err != nil {
		log.Debug("Create product coercion failed", zap.Error(err))
		msg := MsgInvalidPrice
		if errors.Is(err, ErrInvalidAttribute) {
			msg = MsgInvalidRequestBody
		}
		middleware.RespondWithMessage(w, http.StatusBadRequest, msg)
		return
	}

	if err := middleware.ValidateRequest(req); err != nil {
		log.Debug("Create product validation failed",
			zap.Any("validation_errors", middleware.FormatValidationErrors(err)),
		)
		middleware.RespondWithMessage(w, http.StatusBadRequest, MsgMissingRequiredFields)
		return
	}

	product, err := h.productService.CreateProduct(r.Context(), req.Params())
	if err != nil {
		log.Error("Failed to create product", zap.Error(err))
		middleware.RespondWithServerError(w)
		return
	}

	log.Info("Product created", zap.String("product_id", product.ID.Hex()))
	middleware.RespondWithJSON(w, http.StatusCreated, CreateProductResponse{
		Message:    MsgProductAdded,
		InsertedID: product.ID,
	})
}
