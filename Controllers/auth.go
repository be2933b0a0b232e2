package Controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"Maintenance/Records"
	"Maintenance/middleware"
)

// AuthController handles technician login and session endpoints
type AuthController struct {
	Service    *Records.Service
	Secret     string
	Production bool
}

// NewAuthController creates a new AuthController
func NewAuthController(svc *Records.Service, secret string, production bool) *AuthController {
	return &AuthController{Service: svc, Secret: secret, Production: production}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login checks a technician's credentials and issues a session token
func (c *AuthController) Login(ctx *fiber.Ctx) error {
	var input loginRequest
	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "invalid request body")
	}
	// Missing fields get the same answer as a wrong password
	if err := validateStruct(input); err != nil {
		return writeError(ctx, Records.ErrInvalidCredentials, c.Production)
	}

	tech, err := c.Service.Technicians.Authenticate(ctx.UserContext(), input.Username, input.Password)
	if err != nil {
		return writeError(ctx, err, c.Production)
	}

	token, expires, err := middleware.IssueToken(c.Secret, tech.TechnicianID, time.Now())
	if err != nil {
		return writeError(ctx, err, c.Production)
	}
	ctx.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   c.Production,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return ctx.JSON(fiber.Map{
		"status":       "success",
		"username":     tech.Username,
		"technicianId": tech.TechnicianID,
		"name":         tech.Name,
		"photoURL":     tech.PhotoURL,
		"token":        token,
	})
}

// Logout clears the session cookie
func (c *AuthController) Logout(ctx *fiber.Ctx) error {
	ctx.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return ctx.JSON(fiber.Map{"status": "success"})
}

// ValidateToken reports the technician behind the current token
func (c *AuthController) ValidateToken(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"status":       "success",
		"technicianId": middleware.TechnicianID(ctx),
	})
}
