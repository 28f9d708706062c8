package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/topup_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/topup_be/internal/utils"
)

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func validationFail(c *fiber.Ctx, errs FieldErrors) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"success": false,
		"message": "Validation error",
		"errors":  errs,
	})
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": msg,
	})
}

func serverError(c *fiber.Ctx, err error, msg string) error {
	log.Printf("[http] %s %s: %v", c.Method(), c.Path(), err)
	return fail(c, fiber.StatusInternalServerError, msg)
}

func setSessionCookie(c *fiber.Ctx, token string, maxAge int, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AdminCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}

// AuthHandler signs in the single configured admin account.
type AuthHandler struct {
	Username     string
	PasswordHash string
	JWTSecret    string
	Expires      int
	SecureCookie bool
}

func NewAuthHandler(username, password, secret string, expires int, secure bool) (*AuthHandler, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &AuthHandler{
		Username:     username,
		PasswordHash: hash,
		JWTSecret:    secret,
		Expires:      expires,
		SecureCookie: secure,
	}, nil
}

type LoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Body request tidak valid")
	}

	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)

	errs := FieldErrors{}
	if username == "" {
		errs.Add("username", "Username wajib diisi")
	}
	if password == "" {
		errs.Add("password", "Password wajib diisi")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	if username != h.Username || !utils.CheckPassword(h.PasswordHash, password) {
		return fail(c, fiber.StatusUnauthorized, "Username atau password salah")
	}

	token, err := utils.SignJWT(h.JWTSecret, username, utils.RoleAdmin, h.Expires)
	if err != nil {
		return serverError(c, err, "Gagal membuat token")
	}
	setSessionCookie(c, token, h.Expires*60, h.SecureCookie)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login berhasil",
		"data": fiber.Map{
			"user": fiber.Map{"username": username, "role": utils.RoleAdmin},
		},
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	setSessionCookie(c, "", -1, h.SecureCookie)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logout berhasil",
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"username": c.Locals("userId"),
			"role":     c.Locals("role"),
		},
	})
}
