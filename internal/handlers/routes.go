package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/Windi-Fikriyansyah/topup_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/topup_be/internal/utils"
)

type Routes struct {
	JWTSecret string

	Auth              *AuthHandler
	Google            *GoogleOAuthHandler
	Products          *ProductHandler
	Categories        *CategoryHandler
	Payments          *PaymentHandler
	Transactions      *TransactionHandler
	AdminCatalog      *AdminCatalogHandler
	AdminTransactions *AdminTransactionHandler
}

func (r *Routes) Mount(app *fiber.App) {
	api := app.Group("/api")

	// public
	api.Get("/products", r.Products.ListPublic)
	api.Get("/products/:id", r.Products.GetDetail)
	api.Get("/categories", r.Categories.GetCategories)
	api.Get("/payment-methods", r.Payments.GetChannels)
	api.Post("/transactions", r.Transactions.Create)
	api.Get("/transactions/:id", r.Transactions.Get)

	app.Get("/ws/transactions/:id", RequireUpgrade, websocket.New(r.Transactions.Watch))

	// admin session
	api.Post("/admin/login", r.Auth.Login)
	api.Post("/admin/logout", r.Auth.Logout)
	if r.Google != nil {
		api.Get("/admin/auth/google/start", r.Google.GoogleStart)
		api.Get("/admin/auth/google/callback", r.Google.GoogleCallback)
	}

	admin := api.Group("/admin",
		middleware.JWTFromCookie(r.JWTSecret),
		middleware.AttachJWTLocals(),
		middleware.RequireRoles(utils.RoleAdmin),
	)
	admin.Get("/me", r.Auth.Me)

	admin.Get("/products", r.AdminCatalog.ListProducts)
	admin.Delete("/products/synced", r.AdminCatalog.ClearSynced)
	admin.Patch("/products/:id/status", r.AdminCatalog.SetProductStatus)
	admin.Patch("/products/:id/image", r.AdminCatalog.SetImage)
	admin.Put("/products/:id/game-id-config", r.AdminCatalog.SetGameIDConfig)
	admin.Delete("/products/:id/game-id-config", r.AdminCatalog.ClearGameIDConfig)
	admin.Patch("/products/:id/variants/:variantId/status", r.AdminCatalog.SetVariantStatus)
	admin.Patch("/products/:id/variants/:variantId/price", r.AdminCatalog.SetVariantPrice)

	admin.Get("/sync", r.AdminCatalog.SyncInfo)
	admin.Post("/sync", r.AdminCatalog.Sync)
	admin.Get("/brands", r.AdminCatalog.Brands)

	admin.Get("/settings", r.AdminCatalog.GetSettings)
	admin.Put("/settings", r.AdminCatalog.SaveSettings)
	admin.Delete("/settings", r.AdminCatalog.ClearSettings)

	admin.Get("/transactions", r.AdminTransactions.List)
	admin.Get("/transactions/export", r.AdminTransactions.Export)
	admin.Get("/dashboard", r.AdminTransactions.Dashboard)
}
