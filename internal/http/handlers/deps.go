package handlers

import (
	"fmt"

	"eyewear/internal/cache"
	"eyewear/internal/config"
	"eyewear/internal/money"
	"eyewear/internal/pricing"
	"eyewear/internal/services"
)

type Deps struct {
	Auth     *services.AuthService
	Catalog  *services.CatalogService
	Wishlist *services.WishlistService
	Admin    *services.AdminService
	Cache    *cache.Cache
	Money    *money.Formatter

	AuthHandler     *AuthHandler
	ShopHandler     *ShopHandler
	WishlistHandler *WishlistHandler
	APIHandler      *APIHandler
	AdminHandler    *AdminHandler
}

// NewDeps wires services and handlers over a catalog backend and the
// session user store.
func NewDeps(backend services.Backend, users services.UserStore, cfg config.Config) (*Deps, error) {
	policy, err := pricing.ParsePolicy(cfg.PricePolicy)
	if err != nil {
		return nil, err
	}
	m, err := money.New(cfg.Locale, cfg.Currency)
	if err != nil {
		return nil, fmt.Errorf("money: %w", err)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := cache.New(cfg.CacheTTL)
	authSvc := services.NewAuthService(users)
	catalogSvc := services.NewCatalogService(backend, c, policy, cfg.ListLimit, cfg.PlaceholderImage)
	wishSvc := services.NewWishlistService(backend, policy, cfg.PlaceholderImage)
	adminSvc := services.NewAdminService(backend, catalogSvc)

	return &Deps{
		Auth: authSvc, Catalog: catalogSvc, Wishlist: wishSvc, Admin: adminSvc, Cache: c, Money: m,

		AuthHandler:     &AuthHandler{Auth: authSvc, Timeout: timeout},
		ShopHandler:     &ShopHandler{Catalog: catalogSvc, Wish: wishSvc, Timeout: timeout},
		WishlistHandler: &WishlistHandler{Wish: wishSvc, Timeout: timeout},
		APIHandler:      &APIHandler{Catalog: catalogSvc, Timeout: timeout},
		AdminHandler:    &AdminHandler{Admin: adminSvc, Catalog: catalogSvc, Timeout: timeout},
	}, nil
}
