package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"github.com/zsiskos/roadstartire/internal/domain"
)

type CatalogAPI interface {
	CreateProduct(ctx context.Context, sku string, spec domain.TireSpec) (*domain.CatalogItem, error)
	ReviseProduct(ctx context.Context, productID int64, spec domain.TireSpec, effectiveAt time.Time) (*domain.Tire, error)
	GetProduct(ctx context.Context, productID int64) (*domain.CatalogItem, error)
	ListRevisions(ctx context.Context, productID int64) ([]domain.Tire, error)
	Search(ctx context.Context, q domain.TireQuery) ([]domain.Tire, error)
	ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.CatalogItem, error)
	CreateTread(ctx context.Context, name, description string) (*domain.Tread, error)
	ListTreads(ctx context.Context) ([]domain.Tread, error)
	AddImage(ctx context.Context, productID int64, url string) (*domain.Image, error)
	RemoveImage(ctx context.Context, imageID int64) error
}

type StockAPI interface {
	Receive(ctx context.Context, productID int64, quantity int, note string) (*domain.StockEntry, error)
	Shrink(ctx context.Context, productID int64, quantity int, note string) (*domain.StockEntry, error)
	History(ctx context.Context, productID int64) ([]domain.StockEntry, error)
}

type CatalogHandler struct {
	catalog CatalogAPI
	stock   StockAPI
	timeout time.Duration
}

func NewCatalogHandler(catalog CatalogAPI, stock StockAPI, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		stock:   stock,
		timeout: timeout,
	}
}

type TireSpecDTO struct {
	TreadID     *int64           `json:"tread_id" validate:"omitempty,gt=0"`
	Name        string           `json:"name" validate:"required,max=30"`
	Brand       string           `json:"brand" validate:"required,max=30"`
	Year        string           `json:"year" validate:"omitempty,len=4,numeric"`
	Width       string           `json:"width" validate:"max=10"`
	AspectRatio string           `json:"aspect_ratio" validate:"max=10"`
	RimSize     string           `json:"rim_size" validate:"max=10"`
	Season      string           `json:"season" validate:"max=30"`
	Pattern     string           `json:"pattern" validate:"max=30"`
	Loads       string           `json:"loads" validate:"max=30"`
	Price       *decimal.Decimal `json:"price" validate:"required,price"`
	ImageURL    string           `json:"image_url" validate:"omitempty,url,max=200"`
}

func (d TireSpecDTO) spec() domain.TireSpec {
	return domain.TireSpec{
		TreadID:     d.TreadID,
		Name:        d.Name,
		Brand:       d.Brand,
		Year:        d.Year,
		Width:       d.Width,
		AspectRatio: d.AspectRatio,
		RimSize:     d.RimSize,
		Season:      d.Season,
		Pattern:     d.Pattern,
		Loads:       d.Loads,
		Price:       *d.Price,
		ImageURL:    d.ImageURL,
	}
}

type CreateProductRequestDTO struct {
	SKU string `json:"sku" validate:"required,max=50"`
	TireSpecDTO
}

// ReviseProductRequestDTO takes effect immediately when effective_at is omitted.
type ReviseProductRequestDTO struct {
	TireSpecDTO
	EffectiveAt *time.Time `json:"effective_at"`
}

type ImageRequestDTO struct {
	URL string `json:"url" validate:"required,url,max=200"`
}

type TreadRequestDTO struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=1000"`
}

type StockRequestDTO struct {
	Quantity int    `json:"quantity" validate:"required,gt=0,lte=2147483647"`
	Note     string `json:"note" validate:"max=255"`
}

func (h *CatalogHandler) SearchTires(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	tires, err := h.catalog.Search(ctx, domain.TireQuery{
		Width:  q.Get("width"),
		Brand:  q.Get("brand"),
		Season: q.Get("season"),
	})
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localTires(tires, locationFrom(r.Context())))
}

func (h *CatalogHandler) GetTire(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localItem(*item, locationFrom(r.Context())))
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateProductRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.catalog.CreateProduct(ctx, req.SKU, req.spec())
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, localItem(*item, locationFrom(r.Context())))
}

func (h *CatalogHandler) ReviseProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req ReviseProductRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	var effectiveAt time.Time
	if req.EffectiveAt != nil {
		effectiveAt = *req.EffectiveAt
	}

	tire, err := h.catalog.ReviseProduct(ctx, productID, req.spec(), effectiveAt)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, localTire(*tire, locationFrom(r.Context())))
}

func (h *CatalogHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	revisions, err := h.catalog.ListRevisions(ctx, productID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localTires(revisions, locationFrom(r.Context())))
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit, offset, err := queryPage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	q := r.URL.Query()
	items, err := h.catalog.ListProducts(ctx, domain.ProductFilter{
		Brand:  q.Get("brand"),
		Year:   q.Get("year"),
		Season: q.Get("season"),
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localItems(items, locationFrom(r.Context())))
}

func (h *CatalogHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req ImageRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	img, err := h.catalog.AddImage(ctx, productID, req.URL)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, localImage(*img, locationFrom(r.Context())))
}

func (h *CatalogHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	imageID, ok := pathID(w, r, "image_id")
	if !ok {
		return
	}

	if err := h.catalog.RemoveImage(ctx, imageID); err != nil {
		mapServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) CreateTread(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req TreadRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	tread, err := h.catalog.CreateTread(ctx, req.Name, req.Description)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, tread)
}

func (h *CatalogHandler) ListTreads(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	treads, err := h.catalog.ListTreads(ctx)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, treads)
}

func (h *CatalogHandler) ReceiveStock(w http.ResponseWriter, r *http.Request) {
	h.changeStock(w, r, h.stock.Receive)
}

func (h *CatalogHandler) ShrinkStock(w http.ResponseWriter, r *http.Request) {
	h.changeStock(w, r, h.stock.Shrink)
}

func (h *CatalogHandler) changeStock(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, productID int64, quantity int, note string) (*domain.StockEntry, error),
) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req StockRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := apply(ctx, productID, req.Quantity, req.Note)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	entry.CreatedAt = entry.CreatedAt.In(locationFrom(r.Context()))
	respondJSON(w, http.StatusCreated, entry)
}

func (h *CatalogHandler) StockHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	history, err := h.stock.History(ctx, productID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, StockResponse{
		Level:   item.Stock,
		Entries: localEntries(history, locationFrom(r.Context())),
	})
}

type StockResponse struct {
	Level   domain.StockLevel   `json:"level"`
	Entries []domain.StockEntry `json:"entries"`
}

var inventoryHeaders = []string{
	"Product ID", "SKU", "Brand", "Name", "Year", "Width", "Aspect Ratio", "Rim Size",
	"Season", "Pattern", "Price", "Received", "Sold", "Shrink", "In Stock", "Total",
}

// ExportInventory writes every product's current revision and stock level
// as an Excel workbook.
func (h *CatalogHandler) ExportInventory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.catalog.ListProducts(ctx, domain.ProductFilter{})
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Inventory")
	if err != nil {
		mapServiceError(w, r, fmt.Errorf("create inventory sheet: %w", err))
		return
	}

	headerRow := sheet.AddRow()
	for _, header := range inventoryHeaders {
		headerRow.AddCell().SetString(header)
	}

	for _, item := range items {
		t := item.Current
		row := sheet.AddRow()
		row.AddCell().SetValue(item.Product.ID)
		row.AddCell().SetString(item.Product.SKU)
		row.AddCell().SetString(t.Brand)
		row.AddCell().SetString(t.Name)
		row.AddCell().SetString(t.Year)
		row.AddCell().SetString(t.Width)
		row.AddCell().SetString(t.AspectRatio)
		row.AddCell().SetString(t.RimSize)
		row.AddCell().SetString(t.Season)
		row.AddCell().SetString(t.Pattern)
		row.AddCell().SetFloatWithFormat(t.Price.InexactFloat64(), "0.00")
		row.AddCell().SetInt(item.Stock.Received)
		row.AddCell().SetInt(item.Stock.Sold)
		row.AddCell().SetInt(item.Stock.Shrink)
		row.AddCell().SetInt(item.Stock.Current())
		row.AddCell().SetInt(item.Stock.Total())
	}

	filename := fmt.Sprintf("inventory-%s.xlsx", time.Now().In(locationFrom(r.Context())).Format(time.DateOnly))
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(w); err != nil {
		log.Printf("failed to write inventory workbook: %v", err)
	}
}
