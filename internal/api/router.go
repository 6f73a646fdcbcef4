package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/deckforge/internal/api/handlers"
	"github.com/ramonehamilton/deckforge/internal/api/response"
	"github.com/ramonehamilton/deckforge/internal/version"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	// WebSocket endpoint (no JSON content-type requirement)
	s.router.Get("/ws", s.wsHub.ServeWs)

	s.router.Route("/api/v1", func(r chi.Router) {
		deckHandler := handlers.NewDeckHandler(s.editor)
		r.Route("/decks", func(r chi.Router) {
			r.Get("/", deckHandler.ListDecks)
			r.Post("/", deckHandler.CreateDeck)
			r.Post("/import", deckHandler.Import)
			r.Get("/{deckID}", deckHandler.GetDeck)
			r.Delete("/{deckID}", deckHandler.DeleteDeck)
			r.Post("/{deckID}/cards", deckHandler.AddCard)
			r.Post("/{deckID}/remove", deckHandler.RemoveCard)
			r.Post("/{deckID}/move", deckHandler.Move)
			r.Post("/{deckID}/consolidate", deckHandler.Consolidate)
			r.Post("/{deckID}/prices/refresh", deckHandler.RefreshPrices)
			r.Post("/{deckID}/printing", deckHandler.ChangePrinting)
			r.Post("/{deckID}/finish", deckHandler.ChangeFinish)
			r.Post("/{deckID}/import", deckHandler.Import)
			r.Get("/{deckID}/export", deckHandler.Export)
		})

		printingHandler := handlers.NewPrintingHandler(s.editor)
		r.Route("/printings", func(r chi.Router) {
			r.Put("/preferences/{name}", printingHandler.SetPreference)
			r.Delete("/preferences/{name}", printingHandler.ClearPreference)
			r.Post("/resolve", printingHandler.Resolve)
		})

		priceHandler := handlers.NewPriceHandler(s.prices)
		r.Post("/prices/resolve", priceHandler.Resolve)
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "deckforge-api",
		"version":   version.String(),
		"wsClients": s.wsHub.ClientCount(),
	})
}
