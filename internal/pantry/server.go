package pantry

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zombor/pantry-tracker/internal/recipes"
)

// Server exposes the pipeline and inventory over a JSON API.
type Server struct {
	service   *Service
	recipeGen *recipes.Generator
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials. Empty means no auth.
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with a default mux.
func NewServer(service *Service, recipeGen *recipes.Generator, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, recipeGen, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing.
func NewServerWithMux(service *Service, recipeGen *recipes.Generator, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		recipeGen: recipeGen,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers and answers preflight requests.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Pantry Tracker"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes, most specific paths first.
func (s *Server) registerRoutes() {
	// Receipts: scan history plus the upload entry point of the pipeline
	s.mux.HandleFunc("GET /api/receipts/{id}/file", s.requireAuth(s.handleGetReceiptFile))
	s.mux.HandleFunc("GET /api/receipts/{id}", s.requireAuth(s.handleGetReceipt))
	s.mux.HandleFunc("DELETE /api/receipts/{id}", s.requireAuth(s.handleDeleteReceipt))
	s.mux.HandleFunc("GET /api/receipts", s.requireAuth(s.handleListReceipts))
	s.mux.HandleFunc("POST /api/receipts", s.requireAuth(s.handleUploadReceipt))

	// Inventory
	s.mux.HandleFunc("POST /api/inventory/voice", s.requireAuth(s.handleVoiceCommand))
	s.mux.HandleFunc("POST /api/inventory/{id}/nutrition", s.requireAuth(s.handleAttachNutrition))
	s.mux.HandleFunc("DELETE /api/inventory/{id}", s.requireAuth(s.handleDeleteInventoryItem))
	s.mux.HandleFunc("GET /api/inventory", s.requireAuth(s.handleListInventory))
	s.mux.HandleFunc("POST /api/inventory", s.requireAuth(s.handleConfirmItems))

	// Recipes
	s.mux.HandleFunc("POST /api/recipes", s.requireAuth(s.handleGenerateRecipe))

	// Shopping list
	s.mux.HandleFunc("PATCH /api/shopping-list/{id}", s.requireAuth(s.handleToggleShoppingItem))
	s.mux.HandleFunc("DELETE /api/shopping-list/{id}", s.requireAuth(s.handleRemoveShoppingItem))
	s.mux.HandleFunc("GET /api/shopping-list", s.requireAuth(s.handleListShoppingItems))
	s.mux.HandleFunc("POST /api/shopping-list", s.requireAuth(s.handleAddShoppingItem))
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
