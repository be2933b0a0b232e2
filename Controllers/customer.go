package Controllers

import (
	"github.com/gofiber/fiber/v2"

	"Maintenance/Models"
	"Maintenance/Records"
	"Maintenance/middleware"
)

// CustomerController handles customer endpoints
type CustomerController struct {
	Service    *Records.Service
	Production bool
}

// NewCustomerController creates a new CustomerController
func NewCustomerController(svc *Records.Service, production bool) *CustomerController {
	return &CustomerController{Service: svc, Production: production}
}

// CreateCustomer adds a customer unless one with the same name, country,
// machine and serial number already exists
func (c *CustomerController) CreateCustomer(ctx *fiber.Ctx) error {
	var input Models.Customer
	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "invalid request body")
	}
	if err := validateStruct(input); err != nil {
		return writeError(ctx, err, c.Production)
	}

	cust, created, err := c.Service.Customers.Create(ctx.UserContext(), input)
	if err != nil {
		return writeError(ctx, err, c.Production)
	}

	status := "exists"
	code := fiber.StatusOK
	if created {
		status = "created"
		code = fiber.StatusCreated
	}
	middleware.CustomersCreated.WithLabelValues(status).Inc()

	return ctx.Status(code).JSON(fiber.Map{
		"status":     status,
		"customerID": cust.CustomerID,
	})
}

// GetCustomers returns every customer
func (c *CustomerController) GetCustomers(ctx *fiber.Ctx) error {
	customers, err := c.Service.Customers.List(ctx.UserContext())
	if err != nil {
		return writeError(ctx, err, c.Production)
	}
	return ctx.JSON(customers)
}
