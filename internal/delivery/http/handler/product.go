package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vkuksa/product-catalog/internal/delivery/http/request"
	"github.com/vkuksa/product-catalog/internal/delivery/http/response"
	"github.com/vkuksa/product-catalog/internal/domain"
	"github.com/vkuksa/product-catalog/internal/pkg/logger"
	"github.com/vkuksa/product-catalog/internal/usecase/catalog"
)

// maxImageUploadSize bounds the multipart form memory for image uploads
const maxImageUploadSize = 10 << 20 // 10MB

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service *catalog.Service
	logger  *logger.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *catalog.Service, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  log,
	}
}

// CreateProductRequest represents the request body for creating a product
type CreateProductRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product := &domain.Product{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	}

	if err := h.service.Create(r.Context(), product); err != nil {
		h.handleError(w, err, req.Code)
		return
	}

	response.Created(w, fmt.Sprintf("/api/products/%s", product.Code))
}

// GetByCode handles GET /api/products/{code}
func (h *ProductHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code, err := request.GetStringParam(r, "code")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product code")
		return
	}

	view, err := h.service.GetByCode(r.Context(), code)
	if err != nil {
		h.handleError(w, err, code)
		return
	}

	response.Success(w, view)
}

// UploadImage handles POST /api/products/{code}/image.
// The response is returned as soon as the blob is stored; the product record
// picks up the image asynchronously, so an immediate read may not see it yet.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	code, err := request.GetStringParam(r, "code")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product code")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	if header.Size > maxImageUploadSize {
		response.Error(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	imageName, err := request.ImageName(code, header.Filename)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Filename must have an extension")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if err := h.service.UploadImage(r.Context(), code, imageName, file, header.Size, contentType); err != nil {
		h.handleError(w, err, code)
		return
	}

	response.Success(w, map[string]string{
		"status":   "success",
		"filename": imageName,
	})
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *ProductHandler) handleError(w http.ResponseWriter, err error, code string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Problem(w, http.StatusNotFound, "Product Not Found",
			fmt.Sprintf("Product with code %s not found", code))
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrAlreadyExists):
		response.Error(w, http.StatusConflict, fmt.Sprintf("Product with code %s already exists", code))
	default:
		h.logger.Error("Internal error in product handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
