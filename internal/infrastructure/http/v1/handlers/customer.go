package handlers

import (
	"github.com/gin-gonic/gin"

	"magasin/internal/domain"
	"magasin/internal/domain/catalogs/customer"
	"magasin/internal/domain/documents/sale"
	"magasin/internal/infrastructure/http/v1/dto"
)

// CustomerHandler exposes the customer catalog and credit repayments.
type CustomerHandler struct {
	*BaseHandler
	customers *customer.Service
	sales     *sale.Service
}

// NewCustomerHandler creates a customer handler.
func NewCustomerHandler(base *BaseHandler, customers *customer.Service, sales *sale.Service) *CustomerHandler {
	return &CustomerHandler{BaseHandler: base, customers: customers, sales: sales}
}

// Create handles POST /customers.
func (h *CustomerHandler) Create(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cust := req.ToCustomer()
	if err := h.customers.Create(c.Request.Context(), cust); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromCustomer(cust))
}

// Get handles GET /customers/:id.
func (h *CustomerHandler) Get(c *gin.Context) {
	customerID, ok := h.ParamID(c)
	if !ok {
		return
	}
	cust, err := h.customers.Get(c.Request.Context(), customerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromCustomer(cust))
}

// List handles GET /customers.
func (h *CustomerHandler) List(c *gin.Context) {
	filter := customer.ListFilter{
		ListFilter: domain.ListFilter{
			Search:  c.Query("search"),
			OrderBy: c.Query("orderBy"),
			Limit:   parseIntQuery(c, "limit", domain.DefaultLimit),
			Offset:  parseIntQuery(c, "offset", 0),
		},
		WithBalance: c.Query("withBalance") == "true",
	}
	res, err := h.customers.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(res, dto.FromCustomer))
}

// Pay handles POST /customers/:id/payments.
func (h *CustomerHandler) Pay(c *gin.Context) {
	customerID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req sale.PayCreditRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.CustomerID = customerID

	res, err := h.sales.PayCustomerCredit(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromCreditPayment(res))
}
