package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/medication-adherence/internal/config"
	"github.com/iliyamo/medication-adherence/internal/middleware"
	"github.com/iliyamo/medication-adherence/internal/model"
	"github.com/iliyamo/medication-adherence/internal/repository"
	"github.com/iliyamo/medication-adherence/internal/utils"
	"github.com/iliyamo/medication-adherence/internal/validation"
)

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *utils.TokenService
	errorResponder
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *utils.TokenService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, errorResponder: errorResponder{Debug: !cfg.IsProduction()}}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name" validate:"min=2,max=100,personname" message_min:"Name must be between 2 and 100 characters" message_max:"Name must be between 2 and 100 characters" message_personname:"Name can only contain letters and spaces"`
	Email    string `json:"email" validate:"required,email" message:"Please provide a valid email address"`
	Password string `json:"password" validate:"min=6,max=128,strongpassword" message_min:"Password must be between 6 and 128 characters" message_max:"Password must be between 6 and 128 characters" message_strongpassword:"Password must contain at least one lowercase letter, one uppercase letter, and one number"`
	Role     string `json:"role" validate:"oneof=patient caretaker" message:"Role must be either patient or caretaker"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email" message:"Please provide a valid email address"`
	Password string `json:"password" validate:"required" message:"Password is required"`
}

type authResp struct {
	Message string              `json:"message"`
	Token   string              `json:"token"`
	User    middleware.Identity `json:"user"`
}

// Register creates a user and logs them in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = repository.NormalizeEmail(req.Email)
	if verr := validation.ValidateStruct(&req); verr != nil {
		return validationFailed(c, verr)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, model.Role(req.Role), h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "User with this email already exists"})
	}
	if err != nil {
		return h.internal(c, "Failed to create user", err)
	}

	token, _, err := h.Tokens.Issue(u.ID)
	if err != nil {
		return h.internal(c, "Failed to issue token", err)
	}
	return c.JSON(http.StatusCreated, authResp{
		Message: "User created successfully",
		Token:   token,
		User:    middleware.IdentityOf(u),
	})
}

// Login checks the credentials and issues a token. Unknown email and wrong
// password produce the same 401.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if verr := validation.ValidateStruct(&req); verr != nil {
		return validationFailed(c, verr)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid email or password"})
	}
	if err != nil {
		return h.internal(c, "Database error", err)
	}
	ok, err := utils.CheckPassword(u.PasswordHash, req.Password)
	if err != nil {
		return h.internal(c, "Authentication failed", err)
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid email or password"})
	}

	token, _, err := h.Tokens.Issue(u.ID)
	if err != nil {
		return h.internal(c, "Failed to issue token", err)
	}
	return c.JSON(http.StatusOK, authResp{
		Message: "Login successful",
		Token:   token,
		User:    middleware.IdentityOf(u),
	})
}

// Verify echoes the identity the auth gate attached.
func (h *AuthHandler) Verify(c echo.Context) error {
	id, _ := middleware.CurrentUser(c)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Token is valid",
		"user":    id,
	})
}
