package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"shop-billing/internal/entity"
	"shop-billing/internal/service"
)

func errStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownProduct),
		errors.Is(err, service.ErrEmptyCart):
		return 400
	case errors.Is(err, service.ErrDuplicateRequest):
		return 409
	case errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, service.ErrCustomerNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrOfferNotFound):
		return 404
	default:
		return 500
	}
}

// --- Customer-facing handlers ---

type CustomerHandler struct {
	customerService *service.CustomerService
}

// NewCustomerHandler creates a new instance of CustomerHandler.
func NewCustomerHandler(customerService *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// Login looks up or creates the customer record --> POST /customers/login
func (h *CustomerHandler) Login(c echo.Context) error {
	login := struct {
		Name   string `json:"name"`
		Mobile string `json:"mobile"`
	}{}
	if err := c.Bind(&login); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}
	if login.Name == "" || login.Mobile == "" {
		return c.JSON(400, map[string]string{"error": "name and mobile required"})
	}

	customer, err := h.customerService.GetOrCreateCustomer(c.Request().Context(), login.Name, login.Mobile)
	if err != nil {
		return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(200, customer)
}

// UpdateWishlist adds or removes a wishlist entry --> POST /customers/wishlist
func (h *CustomerHandler) UpdateWishlist(c echo.Context) error {
	req := struct {
		Name      string `json:"name"`
		Mobile    string `json:"mobile"`
		ProductID string `json:"product_id"`
		Remove    bool   `json:"remove"`
	}{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	var customer *entity.Customer
	var err error
	if req.Remove {
		customer, err = h.customerService.RemoveFromWishlist(c.Request().Context(), req.Name, req.Mobile, req.ProductID)
	} else {
		customer, err = h.customerService.AddToWishlist(c.Request().Context(), req.Name, req.Mobile, req.ProductID)
	}
	if err != nil {
		return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(200, customer)
}

// Bills returns the customer's bill history --> GET /customers/bills
func (h *CustomerHandler) Bills(c echo.Context) error {
	name := c.QueryParam("name")
	mobile := c.QueryParam("mobile")
	if name == "" || mobile == "" {
		return c.JSON(400, map[string]string{"error": "name and mobile required"})
	}

	bills, err := h.customerService.Bills(c.Request().Context(), name, mobile)
	if err != nil {
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, bills)
}

// ListCustomers returns every customer --> GET /admin/customers
func (h *CustomerHandler) ListCustomers(c echo.Context) error {
	customers, err := h.customerService.ListCustomers(c.Request().Context())
	if err != nil {
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, customers)
}

// --- Catalog handlers ---

type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new instance of CatalogHandler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ListProducts returns the catalog --> GET /products
func (h *CatalogHandler) ListProducts(c echo.Context) error {
	products, err := h.catalogService.ListProducts(c.Request().Context())
	if err != nil {
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, products)
}

// ListActiveOffers returns the offers in effect --> GET /offers
func (h *CatalogHandler) ListActiveOffers(c echo.Context) error {
	offers, err := h.catalogService.ActiveOffers(c.Request().Context())
	if err != nil {
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, offers)
}

// AddProducts creates one or more products --> POST /admin/products
func (h *CatalogHandler) AddProducts(c echo.Context) error {
	var products []entity.Product
	if err := c.Bind(&products); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}
	if len(products) == 0 {
		return c.JSON(400, map[string]string{"error": "no products given"})
	}

	added, err := h.catalogService.AddProducts(c.Request().Context(), products)
	if err != nil {
		return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(200, added)
}

// UpdateProduct replaces a product --> PUT /admin/products/:id
func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
	product := entity.Product{}
	if err := c.Bind(&product); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}
	product.ID = c.Param("id")

	updated, err := h.catalogService.UpdateProduct(c.Request().Context(), product)
	if err != nil {
		return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(200, updated)
}

// AdjustStock applies a stock delta --> POST /admin/products/:id/stock
func (h *CatalogHandler) AdjustStock(c echo.Context) error {
	req := struct {
		Delta int `json:"delta"`
	}{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	product, err := h.catalogService.AdjustStock(c.Request().Context(), c.Param("id"), req.Delta)
	if err != nil {
		return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(200, product)
}

// DeleteProduct removes a product --> DELETE /admin/products/:id
func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
	if err := h.catalogService.DeleteProduct(c.Request().Context(), c.Param("id")); err != nil {
		return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(200, map[string]string{"message": "deleted"})
}

// LowStock lists products under the threshold --> GET /admin/low-stock
func (h *CatalogHandler) LowStock(c echo.Context) error {
	products, err := h.catalogService.LowStock(c.Request().Context())
	if err != nil {
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, products)
}

// ListOffers returns every offer --> GET /admin/offers
func (h *CatalogHandler) ListOffers(c echo.Context) error {
	offers, err := h.catalogService.ListOffers(c.Request().Context())
	if err != nil {
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, offers)
}

// CreateOffer stores a new offer --> POST /admin/offers
func (h *CatalogHandler) CreateOffer(c echo.Context) error {
	offer := entity.Offer{}
	if err := c.Bind(&offer); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	created, err := h.catalogService.CreateOffer(c.Request().Context(), offer)
	if err != nil {
		return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(200, created)
}

// ToggleOffer flips an offer's active flag --> PUT /admin/offers/:id/toggle
func (h *CatalogHandler) ToggleOffer(c echo.Context) error {
	offer, err := h.catalogService.ToggleOffer(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(200, offer)
}

// DeleteOffer removes an offer --> DELETE /admin/offers/:id
func (h *CatalogHandler) DeleteOffer(c echo.Context) error {
	if err := h.catalogService.DeleteOffer(c.Request().Context(), c.Param("id")); err != nil {
		return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(200, map[string]string{"message": "deleted"})
}

// Shop returns the retailer profile --> GET /shop
func (h *CatalogHandler) Shop(c echo.Context) error {
	shop, err := h.catalogService.Shop(c.Request().Context())
	if err != nil {
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, shop)
}

// UpdateShop replaces the retailer profile --> POST /admin/shop
func (h *CatalogHandler) UpdateShop(c echo.Context) error {
	shop := entity.Shop{}
	if err := c.Bind(&shop); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}
	if err := h.catalogService.UpdateShop(c.Request().Context(), shop); err != nil {
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, shop)
}

// --- Order handlers ---

type OrderHandler struct {
	orderService    *service.OrderService
	pricingService  *service.PricingService
	customerService *service.CustomerService
}

// NewOrderHandler creates a new instance of OrderHandler.
func NewOrderHandler(orderService *service.OrderService, pricingService *service.PricingService, customerService *service.CustomerService) *OrderHandler {
	return &OrderHandler{
		orderService:    orderService,
		pricingService:  pricingService,
		customerService: customerService,
	}
}

type cartRequest struct {
	Name         string            `json:"name"`
	Mobile       string            `json:"mobile"`
	Items        []entity.CartLine `json:"items"`
	RedeemPoints bool              `json:"redeem_points"`
}

// PriceCart previews cart totals without persisting anything --> POST /cart/price
func (h *OrderHandler) PriceCart(c echo.Context) error {
	req := cartRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	ctx := c.Request().Context()
	var customer *entity.Customer
	if req.Name != "" && req.Mobile != "" {
		var err error
		customer, err = h.customerService.GetOrCreateCustomer(ctx, req.Name, req.Mobile)
		if err != nil {
			return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
		}
	}

	cart, err := h.pricingService.PriceCart(ctx, req.Items, customer, req.RedeemPoints)
	if err != nil {
		return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(200, cart)
}

// SubmitRequest creates a pending request --> POST /requests
func (h *OrderHandler) SubmitRequest(c echo.Context) error {
	req := cartRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}
	if req.Name == "" || req.Mobile == "" {
		return c.JSON(400, map[string]string{"error": "name and mobile required"})
	}
	idempotentKey := c.Request().Header.Get("Idempotent-Key")

	request, err := h.orderService.SubmitRequest(c.Request().Context(), req.Name, req.Mobile, req.Items, req.RedeemPoints, idempotentKey)
	if err != nil {
		return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(200, map[string]interface{}{
		"request_id": request.ID,
		"total":      request.GrandTotal,
	})
}

// PendingRequests lists pending requests --> GET /admin/requests
func (h *OrderHandler) PendingRequests(c echo.Context) error {
	requests, err := h.orderService.PendingRequests(c.Request().Context(), c.QueryParam("name"), c.QueryParam("mobile"))
	if err != nil {
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, requests)
}

// ApproveRequest approves a pending request --> POST /admin/requests/:id/approve
func (h *OrderHandler) ApproveRequest(c echo.Context) error {
	bill, warnings, err := h.orderService.ApproveRequest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(200, map[string]interface{}{
		"bill_number":    bill.BillNumber,
		"adjusted_total": bill.GrandTotal,
		"points_earned":  bill.PointsEarned,
		"warnings":       warnings,
	})
}

// RejectRequest rejects a pending request --> POST /admin/requests/:id/reject
func (h *OrderHandler) RejectRequest(c echo.Context) error {
	if err := h.orderService.RejectRequest(c.Request().Context(), c.Param("id")); err != nil {
		return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(200, map[string]string{"message": "rejected"})
}

// Bills lists every bill --> GET /admin/bills
func (h *OrderHandler) Bills(c echo.Context) error {
	bills, err := h.orderService.Bills(c.Request().Context())
	if err != nil {
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, bills)
}
