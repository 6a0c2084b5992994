package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rl1809/shopzone/internal/core/domain"
	"github.com/rl1809/shopzone/internal/core/service"
	"github.com/rl1809/shopzone/internal/port"
)

type HTTPHandler struct {
	sessions *service.Sessions
	catalog  *service.CatalogService
	orders   port.OrderRepository
	logger   *zap.Logger
}

type AddItemRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type OrderResponse struct {
	ID               string           `json:"id"`
	Cart             service.CartView `json:"cart"`
	PaymentReference string           `json:"payment_reference"`
	CreatedAt        time.Time        `json:"created_at"`
}

type CheckoutStatusResponse struct {
	State     domain.CheckoutState `json:"state"`
	LastOrder *OrderResponse       `json:"last_order,omitempty"`
}

type FavoriteResponse struct {
	ProductID int  `json:"product_id"`
	Favorite  bool `json:"favorite"`
}

// NewHTTPHandler wires the storefront API. orders may be nil when order
// history is not configured.
func NewHTTPHandler(sessions *service.Sessions, catalog *service.CatalogService, orders port.OrderRepository, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		sessions: sessions,
		catalog:  catalog,
		orders:   orders,
		logger:   logger,
	}
}

func (h *HTTPHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.HealthCheck)

	api := e.Group("/api")
	api.GET("/products", h.listProducts)
	api.GET("/products/categories", h.listCategories)
	api.GET("/products/:id", h.getProduct)

	s := api.Group("/sessions/:session")
	s.GET("/cart", h.getCart)
	s.DELETE("/cart", h.clearCart)
	s.POST("/cart/items", h.addItem)
	s.PUT("/cart/items/:product", h.setQuantity)
	s.DELETE("/cart/items/:product", h.removeItem)
	s.POST("/checkout", h.checkout)
	s.GET("/checkout", h.checkoutStatus)
	s.GET("/favorites", h.listFavorites)
	s.POST("/favorites/:product", h.toggleFavorite)

	if h.orders != nil {
		api.GET("/orders/:id", h.getOrder)
	}
}

func (h *HTTPHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) listProducts(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	list, err := h.catalog.List(c.Request().Context(), service.ListQuery{
		Category: c.QueryParam("category"),
		Query:    c.QueryParam("q"),
		Sort:     service.SortOrder(c.QueryParam("sort")),
		Page:     page,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *HTTPHandler) listCategories(c echo.Context) error {
	categories, err := h.catalog.Categories(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *HTTPHandler) getProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 {
		return h.writeError(c, domain.ErrInvalidProductID)
	}
	p, err := h.catalog.Get(c.Request().Context(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *HTTPHandler) getCart(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	return h.writeCart(c, http.StatusOK, sess)
}

func (h *HTTPHandler) clearCart(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}

	sess.Cart.Clear(c.Request().Context())
	return h.writeCart(c, http.StatusOK, sess)
}

func (h *HTTPHandler) addItem(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}

	req := AddItemRequest{Quantity: 1}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "invalid_body"})
	}

	if err := sess.Cart.AddOrIncrement(c.Request().Context(), req.ProductID, req.Quantity); err != nil {
		return h.writeError(c, err)
	}
	return h.writeCart(c, http.StatusOK, sess)
}

func (h *HTTPHandler) setQuantity(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	productID, err := strconv.Atoi(c.Param("product"))
	if err != nil {
		return h.writeError(c, domain.ErrInvalidProductID)
	}

	var req SetQuantityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "invalid_body"})
	}

	sess.Cart.SetQuantity(c.Request().Context(), productID, req.Quantity)
	return h.writeCart(c, http.StatusOK, sess)
}

func (h *HTTPHandler) removeItem(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	productID, err := strconv.Atoi(c.Param("product"))
	if err != nil {
		return h.writeError(c, domain.ErrInvalidProductID)
	}

	sess.Cart.Remove(c.Request().Context(), productID)
	return h.writeCart(c, http.StatusOK, sess)
}

func (h *HTTPHandler) checkout(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}

	order, err := sess.Reconciler.Checkout(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, orderResponse(order))
}

func (h *HTTPHandler) checkoutStatus(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}

	resp := CheckoutStatusResponse{State: sess.Reconciler.State()}
	if last := sess.Reconciler.LastOrder(); last != nil {
		o := orderResponse(*last)
		resp.LastOrder = &o
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) listFavorites(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]int{"product_ids": sess.Favorites.IDs()})
}

func (h *HTTPHandler) toggleFavorite(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	productID, err := strconv.Atoi(c.Param("product"))
	if err != nil {
		return h.writeError(c, domain.ErrInvalidProductID)
	}

	added, err := sess.Favorites.Toggle(c.Request().Context(), productID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, FavoriteResponse{ProductID: productID, Favorite: added})
}

func (h *HTTPHandler) getOrder(c echo.Context) error {
	order, err := h.orders.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, orderResponse(*order))
}

func (h *HTTPHandler) session(c echo.Context) (*service.Session, error) {
	return h.sessions.Get(c.Request().Context(), c.Param("session"))
}

func (h *HTTPHandler) writeCart(c echo.Context, status int, sess *service.Session) error {
	view := service.RenderCart(sess.Snapshot(c.Request().Context()), service.CartTitleLimit)
	return c.JSON(status, view)
}

func orderResponse(order domain.OrderSnapshot) OrderResponse {
	return OrderResponse{
		ID: order.ID,
		Cart: service.RenderCart(service.CartSnapshot{
			Lines:     order.Lines,
			Resolved:  order.Products,
			Breakdown: order.Breakdown,
		}, service.CheckoutTitleLimit),
		PaymentReference: order.PaymentReference,
		CreatedAt:        order.CreatedAt,
	}
}

func (h *HTTPHandler) writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	code := "internal"
	message := "internal error"

	var unresolved *domain.UnresolvedLinesError
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		status, code, message = http.StatusBadRequest, "invalid_quantity", err.Error()
	case errors.Is(err, domain.ErrInvalidProductID):
		status, code, message = http.StatusBadRequest, "invalid_product_id", err.Error()
	case errors.Is(err, domain.ErrInvalidSession):
		status, code, message = http.StatusBadRequest, "invalid_session", err.Error()
	case errors.Is(err, domain.ErrEmptyCart):
		status, code, message = http.StatusUnprocessableEntity, "empty_cart", "your cart is empty"
	case errors.As(err, &unresolved):
		status, code, message = http.StatusFailedDependency, "unresolved_lines", err.Error()
	case errors.Is(err, domain.ErrPaymentDeclined):
		status, code, message = http.StatusPaymentRequired, "payment_declined", "payment failed, please try again"
	case errors.Is(err, domain.ErrAlreadyProcessing):
		status, code, message = http.StatusConflict, "already_processing", err.Error()
	case errors.Is(err, domain.ErrProductNotFound):
		status, code, message = http.StatusNotFound, "product_not_found", err.Error()
	case errors.Is(err, domain.ErrOrderNotFound):
		status, code, message = http.StatusNotFound, "order_not_found", err.Error()
	default:
		h.logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
	}

	return c.JSON(status, ErrorResponse{Error: message, Code: code})
}
