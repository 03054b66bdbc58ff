package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/internal/events"
	"github.com/vendexhq/commerce-engine/internal/store"
	"github.com/vendexhq/commerce-engine/internal/websocket"
	"github.com/vendexhq/commerce-engine/pkg/models"
)

// maxUploadBytes caps the upload request body; the multipart parser
// keeps at most memoryBytes in memory and spills the rest to disk.
const (
	maxUploadBytes = 64 << 20
	memoryBytes    = 32 << 20
)

// EventPublisher is the slice of the Kafka producer the handler uses.
type EventPublisher interface {
	PublishCatalogImported(event events.CatalogImportedEvent) error
}

// Broadcaster pushes import summaries to the dashboard stream.
type Broadcaster interface {
	Broadcast(messageType string, data interface{})
}

// Handler serves the admin catalog endpoints: bulk import upload,
// listing with margin spread, and the pricing path.
type Handler struct {
	importer  *Importer
	products  store.ProductStore
	publisher EventPublisher
	hub       Broadcaster
	logger    *logrus.Logger
	maxUpload int64
}

func NewHandler(importer *Importer, products store.ProductStore, publisher EventPublisher, hub Broadcaster, logger *logrus.Logger) *Handler {
	return &Handler{
		importer:  importer,
		products:  products,
		publisher: publisher,
		hub:       hub,
		logger:    logger,
		maxUpload: maxUploadBytes,
	}
}

// ImportProducts accepts a multipart CSV upload on field "file". The
// upload is staged to a temp file that is removed on every exit path.
func (h *Handler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(memoryBytes); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	upload, _, err := r.FormFile("file")
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer upload.Close()

	staged, err := os.CreateTemp("", "catalog-import-*.csv")
	if err != nil {
		h.logger.WithError(err).Error("Failed to stage import file")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer func() {
		staged.Close()
		os.Remove(staged.Name())
	}()

	if _, err := io.Copy(staged, upload); err != nil {
		h.logger.WithError(err).Error("Failed to write staged import file")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	if _, err := staged.Seek(0, io.SeekStart); err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}

	result, err := h.importer.ImportCSV(r.Context(), staged)
	if err != nil {
		h.logger.WithError(err).Error("Catalog import failed")
		h.respondWithError(w, http.StatusInternalServerError, "Import failed")
		return
	}

	if h.publisher != nil {
		event := events.CatalogImportedEvent{Processed: result.Processed, Errors: result.Errors}
		if err := h.publisher.PublishCatalogImported(event); err != nil {
			h.logger.WithError(err).Error("Failed to publish catalog imported event")
		}
	}
	if h.hub != nil {
		h.hub.Broadcast(websocket.TypeCatalogImport, result)
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Processed %d rows, %d errors", result.Processed, result.Errors),
	})
}

// productView adds the derived margin spread to the stored fields.
type productView struct {
	models.Product
	Spread float64 `json:"spread"`
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list products")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, productView{Product: p, Spread: p.Spread()})
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"products": views,
		"count":    len(views),
	})
}

type updatePriceRequest struct {
	Price float64 `json:"price"`
}

func (h *Handler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sku := vars["sku"]

	var req updatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Price <= 0 {
		h.respondWithError(w, http.StatusBadRequest, "Price must be positive")
		return
	}

	if err := h.products.UpdatePrice(r.Context(), sku, req.Price); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.WithError(err).WithField("sku", sku).Error("Failed to update price")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to update price")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"sku":   sku,
		"price": req.Price,
	}).Info("Product price updated")

	product, err := h.products.GetBySKU(r.Context(), sku)
	if err != nil {
		h.logger.WithError(err).WithField("sku", sku).Error("Failed to reload product after price update")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to update price")
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Price updated",
		"product": productView{Product: *product, Spread: product.Spread()},
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
