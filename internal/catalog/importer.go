package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/internal/store"
	"github.com/vendexhq/commerce-engine/pkg/models"
)

// ImportResult aggregates a bulk import run. Row-level failure detail
// is logged, not returned.
type ImportResult struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// rowFields carries the validated subset of a CSV row. SKU is the
// upsert key; numeric IDs are caller-supplied and may collide across
// partial re-imports, so they are never used as identity.
type rowFields struct {
	SKU   string  `validate:"required"`
	Title string  `validate:"required"`
	Price float64 `validate:"gt=0"`
}

// Importer streams product rows out of a CSV and upserts them one by
// one. A bad row is counted and skipped; it never aborts the batch.
type Importer struct {
	products store.ProductStore
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewImporter(products store.ProductStore, logger *logrus.Logger) *Importer {
	return &Importer{
		products: products,
		validate: validator.New(),
		logger:   logger,
	}
}

// ImportCSV consumes rows incrementally; the file is never buffered
// whole. The first record is the header and drives column mapping.
func (i *Importer) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return &ImportResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for idx, name := range header {
		columns[normalizeColumn(name)] = idx
	}

	result := &ImportResult{}
	rowNum := 1
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			result.Errors++
			i.logger.WithError(err).WithField("row", rowNum).Warn("Skipping malformed CSV row")
			continue
		}

		product, err := i.parseRow(columns, record)
		if err == nil {
			err = i.products.UpsertBySKU(ctx, product)
		}
		if err != nil {
			result.Errors++
			i.logger.WithError(err).WithField("row", rowNum).Warn("Skipping failed CSV row")
			continue
		}
		result.Processed++
	}

	i.logger.WithFields(logrus.Fields{
		"processed": result.Processed,
		"errors":    result.Errors,
	}).Info("Catalog import completed")

	return result, nil
}

func (i *Importer) parseRow(columns map[string]int, record []string) (*models.Product, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	id, err := strconv.ParseInt(field("id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", field("id"), err)
	}
	price, err := strconv.ParseFloat(field("price"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", field("price"), err)
	}

	cost := 0.0
	if raw := field("cost"); raw != "" {
		cost, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cost %q: %w", raw, err)
		}
	}

	row := rowFields{SKU: field("sku"), Title: field("title"), Price: price}
	if err := i.validate.Struct(&row); err != nil {
		return nil, fmt.Errorf("row validation failed: %w", err)
	}

	product := &models.Product{
		ID:           id,
		SKU:          row.SKU,
		Title:        row.Title,
		Description:  field("description"),
		Price:        price,
		Cost:         cost,
		Image:        field("image"),
		Brand:        field("brand"),
		Category:     field("category"),
		ProductType:  field("product_type"),
		GTIN:         field("gtin"),
		MPN:          field("mpn"),
		Condition:    field("condition"),
		Availability: field("availability"),
	}
	if product.Brand == "" {
		product.Brand = models.DefaultBrand
	}
	if product.Condition == "" {
		product.Condition = models.DefaultCondition
	}
	if product.Availability == "" {
		product.Availability = models.DefaultAvailability
	}

	return product, nil
}

// normalizeColumn maps header spellings from the bulk-import template
// onto product field names.
func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "image_url":
		return "image"
	case "google_category", "google_product_category":
		return "category"
	}
	return name
}
