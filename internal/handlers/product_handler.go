package handlers

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxImageSize caps product image uploads at 5 MiB.
const maxImageSize = 5 << 20

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service   *services.ProductService
	uploadDir string
	errors    errorResponder
}

// NewProductHandler creates a new ProductHandler storing images under uploadDir.
func NewProductHandler(service *services.ProductService, uploadDir string, logger *zap.SugaredLogger, verbose bool) *ProductHandler {
	return &ProductHandler{
		service:   service,
		uploadDir: uploadDir,
		errors:    errorResponder{logger: logger, verbose: verbose},
	}
}

// RegisterRoutes registers the product routes; writes go through sellerOnly.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, sellerOnly fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", sellerOnly, h.HandleCreateProduct)
	productRoutes.Put("/:id", sellerOnly, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", sellerOnly, h.HandleDeleteProduct)
}

// HandleGetProducts lists the catalog.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return h.errors.respond(c, err, "Could not retrieve products")
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.errors.respond(c, err, "Could not retrieve product")
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a product from a multipart form with fields
// name, description, price and an image file.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	in, err := productForm(c)
	if err != nil {
		return h.errors.respond(c, err, "Invalid product")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return h.errors.respond(c, &services.ValidationError{Fields: map[string]string{"image": "is required"}}, "Invalid product")
	}
	if in.Image, err = h.saveImage(c, file); err != nil {
		return h.errors.respond(c, err, "Could not store image")
	}

	product, err := h.service.CreateProduct(c.UserContext(), in)
	if err != nil {
		h.removeImage(in.Image)
		return h.errors.respond(c, err, "Could not create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct replaces a product's fields. The image is optional and
// kept when no new file is sent.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	in, err := productForm(c)
	if err != nil {
		return h.errors.respond(c, err, "Invalid product")
	}

	var newImage string
	if file, ferr := c.FormFile("image"); ferr == nil {
		if newImage, err = h.saveImage(c, file); err != nil {
			return h.errors.respond(c, err, "Could not store image")
		}
		in.Image = newImage
	} else {
		existing, err := h.service.GetProductByID(c.UserContext(), id)
		if err != nil {
			return h.errors.respond(c, err, "Could not update product")
		}
		in.Image = existing.Image
	}

	product, err := h.service.UpdateProduct(c.UserContext(), id, in)
	if err != nil {
		if newImage != "" {
			h.removeImage(newImage)
		}
		return h.errors.respond(c, err, "Could not update product")
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return h.errors.respond(c, err, "Could not delete product")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func productForm(c *fiber.Ctx) (services.ProductInput, error) {
	in := services.ProductInput{
		Name:        strings.TrimSpace(c.FormValue("name")),
		Description: strings.TrimSpace(c.FormValue("description")),
	}

	raw := strings.TrimSpace(c.FormValue("price"))
	if raw == "" {
		return in, &services.ValidationError{Fields: map[string]string{"price": "is required"}}
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return in, &services.ValidationError{Fields: map[string]string{"price": "must be a number"}}
	}
	in.Price = price
	return in, nil
}

// saveImage stores the upload under a random name and returns its public path.
func (h *ProductHandler) saveImage(c *fiber.Ctx, file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		return "", &services.ValidationError{Fields: map[string]string{"image": "must be a jpg, png, gif or webp file"}}
	}
	if file.Size > maxImageSize {
		return "", &services.ValidationError{Fields: map[string]string{"image": "must be 5MB or smaller"}}
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := uuid.New().String() + ext
	if err := c.SaveFile(file, filepath.Join(h.uploadDir, name)); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return "/uploads/" + name, nil
}

func (h *ProductHandler) removeImage(publicPath string) {
	name := strings.TrimPrefix(publicPath, "/uploads/")
	_ = os.Remove(filepath.Join(h.uploadDir, filepath.Base(name)))
}
