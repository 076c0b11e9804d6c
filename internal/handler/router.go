package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes groups the storefront handlers for registration on a router.
type Routes struct {
	System   *SystemHandler
	Catalog  *CatalogHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Proofs   *ProofHandler
	Reviews  *ReviewHandler

	// PayGuard wraps the pay endpoint, typically with idempotency-key deduplication.
	PayGuard func(http.Handler) http.Handler
}

// Register mounts health checks on r and the API under /api/v1. It returns the API
// subrouter so callers can attach API-only middleware.
func (rt Routes) Register(r *mux.Router) *mux.Router {
	r.HandleFunc("/health", rt.System.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", rt.System.Ready).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/restaurants", rt.Catalog.ListRestaurants).Methods(http.MethodGet)
	api.HandleFunc("/restaurants/{id}", rt.Catalog.GetRestaurant).Methods(http.MethodGet)
	api.HandleFunc("/restaurants/{id}/proofs", rt.Proofs.ListByRestaurant).Methods(http.MethodGet)
	api.HandleFunc("/restaurants/{id}/reviews", rt.Reviews.List).Methods(http.MethodGet)
	api.HandleFunc("/restaurants/{id}/reviews", rt.Reviews.Submit).Methods(http.MethodPost)
	api.HandleFunc("/networks", rt.Catalog.ListNetworks).Methods(http.MethodGet)

	api.HandleFunc("/cart", rt.Cart.GetCart).Methods(http.MethodGet)
	api.HandleFunc("/cart", rt.Cart.ClearCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart/items", rt.Cart.AddItem).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{itemId}", rt.Cart.UpdateQuantity).Methods(http.MethodPatch)
	api.HandleFunc("/cart/items/{itemId}", rt.Cart.RemoveItem).Methods(http.MethodDelete)

	var pay http.Handler = http.HandlerFunc(rt.Checkout.Pay)
	if rt.PayGuard != nil {
		pay = rt.PayGuard(pay)
	}
	api.Handle("/checkout", pay).Methods(http.MethodPost)
	api.HandleFunc("/checkout", rt.Checkout.Status).Methods(http.MethodGet)
	api.HandleFunc("/checkout/cancel", rt.Checkout.Cancel).Methods(http.MethodPost)
	api.HandleFunc("/checkout/events", rt.Checkout.Events).Methods(http.MethodGet)

	api.HandleFunc("/proofs", rt.Proofs.ListProofs).Methods(http.MethodGet)
	api.HandleFunc("/proofs/{id}", rt.Proofs.GetProof).Methods(http.MethodGet)
	api.HandleFunc("/proofs/{id}/check", rt.Proofs.Check).Methods(http.MethodGet)

	return api
}
