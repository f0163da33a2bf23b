package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/freshmart/storefront/internal/cart"
	"github.com/freshmart/storefront/internal/catalog"
	"github.com/freshmart/storefront/internal/checkout"
	"github.com/freshmart/storefront/internal/money"
	"github.com/freshmart/storefront/internal/receipts"
	"github.com/freshmart/storefront/internal/session"
)

type Handler struct {
	catalog  *catalog.CachedCatalog
	sessions *session.Manager
	receipts receipts.Repository // optional
	logger   *log.Logger
}

func NewHandler(cc *catalog.CachedCatalog, sessions *session.Manager, logger *log.Logger) *Handler {
	return &Handler{catalog: cc, sessions: sessions, logger: logger}
}

// WithReceipts enables the customer order-history endpoint.
func (h *Handler) WithReceipts(r receipts.Repository) *Handler {
	h.receipts = r
	return h
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "storefront-engine"})
}

// ListProducts serves the storefront grid: available products only, unless
// ?all=true asks for the full catalog (admin and vendor views).
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []catalog.Product
		err      error
	)
	if r.URL.Query().Get("all") == "true" {
		products, err = h.catalog.ListProducts(r.Context())
	} else {
		products, err = h.catalog.ListAvailableProducts(r.Context())
	}
	if err != nil {
		h.logger.Printf("list products: %v", err)
		writeError(w, http.StatusBadGateway, "failed to load products")
		return
	}

	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var np catalog.NewProduct
	if err := json.NewDecoder(r.Body).Decode(&np); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if np.Name == "" || np.Price <= 0 {
		writeError(w, http.StatusBadRequest, "name and a positive price are required")
		return
	}

	id, err := h.catalog.CreateProduct(r.Context(), np)
	if err != nil {
		h.logger.Printf("create product: %v", err)
		writeError(w, http.StatusBadGateway, "failed to create product")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Printf("delete product %d: %v", id, err)
		writeError(w, http.StatusBadGateway, "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	if err := h.catalog.ToggleAvailability(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Printf("toggle availability %d: %v", id, err)
		writeError(w, http.StatusBadGateway, "failed to toggle availability")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) ListVendorProducts(w http.ResponseWriter, r *http.Request) {
	vendor := chi.URLParam(r, "vendor")
	if vendor == "" {
		writeError(w, http.StatusBadRequest, "missing vendor")
		return
	}

	products, err := h.catalog.ListProductsForVendor(r.Context(), vendor)
	if err != nil {
		h.logger.Printf("list vendor products: %v", err)
		writeError(w, http.StatusBadGateway, "failed to load vendor products")
		return
	}

	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": s.ID})
}

func (h *Handler) DestroySession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(chi.URLParam(r, "sessionId"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cartView(s))
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	// Resolve the product snapshot from the catalog; the cart stores a copy,
	// not a live reference.
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.logger.Printf("load products for add: %v", err)
		writeError(w, http.StatusBadGateway, "failed to load products")
		return
	}

	var product *catalog.Product
	for i := range products {
		if products[i].ID == req.ProductID {
			product = &products[i]
			break
		}
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := s.Cart.Add(*product, req.Quantity); err != nil {
		var ue *cart.UnavailableError
		switch {
		case errors.As(err, &ue):
			writeError(w, http.StatusConflict, ue.Error())
		case errors.Is(err, cart.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, "quantity must be at least 1")
		default:
			writeError(w, http.StatusInternalServerError, "failed to add item")
		}
		return
	}

	writeJSON(w, http.StatusOK, cartView(s))
}

type updateQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	s.Cart.UpdateQuantity(id, req.Quantity)
	writeJSON(w, http.StatusOK, cartView(s))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	s.Cart.Remove(id)
	writeJSON(w, http.StatusOK, cartView(s))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	s.Cart.Clear()
	writeJSON(w, http.StatusOK, cartView(s))
}

type checkoutRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "online"
	}

	conf, err := s.Checkout.Checkout(r.Context(), req.PaymentMethod)
	if err != nil {
		var (
			unavailable *cart.UnavailableItemsError
			failed      *checkout.Error
		)
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, checkout.ErrInFlight):
			writeError(w, http.StatusConflict, err.Error())
		case errors.As(err, &unavailable):
			writeError(w, http.StatusConflict, unavailable.Error())
		case errors.As(err, &failed):
			writeError(w, http.StatusBadGateway, failed.Error())
		default:
			h.logger.Printf("checkout: %v", err)
			writeError(w, http.StatusInternalServerError, "checkout failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, conf)
}

func (h *Handler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	if h.receipts == nil {
		writeError(w, http.StatusServiceUnavailable, "order history is not enabled")
		return
	}

	customer := chi.URLParam(r, "customer")
	if customer == "" {
		writeError(w, http.StatusBadRequest, "missing customer")
		return
	}

	orders, err := h.receipts.ListByCustomer(r.Context(), customer)
	if err != nil {
		h.logger.Printf("list orders for %s: %v", customer, err)
		writeError(w, http.StatusInternalServerError, "failed to load orders")
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "sessionId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing sessionId")
		return nil, false
	}

	s, err := h.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "productId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid productId")
		return 0, false
	}
	return id, true
}

type cartItemView struct {
	Product      catalog.Product `json:"product"`
	Quantity     int64           `json:"quantity"`
	LineTotal    money.Amount    `json:"lineTotal"`
	PriceDisplay string          `json:"priceDisplay"`
}

type cartViewResponse struct {
	SessionID    string         `json:"sessionId"`
	Items        []cartItemView `json:"items"`
	ItemCount    int64          `json:"itemCount"`
	Subtotal     money.Amount   `json:"subtotal"`
	Total        money.Amount   `json:"total"`
	TotalDisplay string         `json:"totalDisplay"`
}

func cartView(s *session.Session) cartViewResponse {
	items := s.Cart.Items()
	views := make([]cartItemView, 0, len(items))
	for _, it := range items {
		views = append(views, cartItemView{
			Product:      it.Product,
			Quantity:     it.Quantity,
			LineTotal:    it.Product.Price.Mul(it.Quantity),
			PriceDisplay: money.FormatINR(it.Product.Price),
		})
	}

	total := s.Cart.Total()
	return cartViewResponse{
		SessionID:    s.ID,
		Items:        views,
		ItemCount:    s.Cart.ItemCount(),
		Subtotal:     s.Cart.Subtotal(),
		Total:        total,
		TotalDisplay: money.FormatINR(total),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
