package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/internal/store"
	"github.com/vendexhq/commerce-engine/pkg/models"
)

// Generator renders the full catalog as a Google Shopping RSS feed.
type Generator struct {
	baseURL  string
	currency string
}

func NewGenerator(baseURL, currency string) *Generator {
	return &Generator{baseURL: baseURL, currency: currency}
}

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	XMLNSG  string   `xml:"xmlns:g,attr"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Items       []item `xml:"item"`
}

type item struct {
	ID           string `xml:"g:id"`
	Title        string `xml:"title"`
	Description  string `xml:"description"`
	Link         string `xml:"link"`
	ImageLink    string `xml:"g:image_link"`
	Price        string `xml:"g:price"`
	Availability string `xml:"g:availability"`
	Condition    string `xml:"g:condition"`
	Brand        string `xml:"g:brand"`
	GTIN         string `xml:"g:gtin,omitempty"`
	MPN          string `xml:"g:mpn,omitempty"`
	Category     string `xml:"g:google_product_category,omitempty"`
}

// Write renders the feed. The xml encoder escapes every value, so
// markup in titles or descriptions cannot break well-formedness.
func (g *Generator) Write(w io.Writer, products []models.Product) error {
	feed := rssFeed{
		Version: "2.0",
		XMLNSG:  "http://base.google.com/ns/1.0",
		Channel: channel{
			Title:       "Vendex Product Feed",
			Link:        g.baseURL,
			Description: "Full product catalog",
			Items:       make([]item, 0, len(products)),
		},
	}

	for _, p := range products {
		id := p.SKU
		if id == "" {
			id = strconv.FormatInt(p.ID, 10)
		}
		feed.Channel.Items = append(feed.Channel.Items, item{
			ID:           id,
			Title:        p.Title,
			Description:  p.Description,
			Link:         fmt.Sprintf("%s/products/%s", g.baseURL, slug.Make(p.Title)),
			ImageLink:    p.Image,
			Price:        fmt.Sprintf("%.2f %s", p.Price, g.currency),
			Availability: p.Availability,
			Condition:    p.Condition,
			Brand:        p.Brand,
			GTIN:         p.GTIN,
			MPN:          p.MPN,
			Category:     p.Category,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	return encoder.Encode(feed)
}

// Handler serves the read-only merchant feed.
type Handler struct {
	generator *Generator
	products  store.ProductStore
	logger    *logrus.Logger
}

func NewHandler(generator *Generator, products store.ProductStore, logger *logrus.Logger) *Handler {
	return &Handler{generator: generator, products: products, logger: logger}
}

func (h *Handler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load products for feed")
		http.Error(w, "feed unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if err := h.generator.Write(w, products); err != nil {
		h.logger.WithError(err).Error("Failed to render product feed")
	}
}
