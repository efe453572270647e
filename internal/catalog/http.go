package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ChemBase/internal/generator"
	"ChemBase/pkg/kit"
)

// InfoGenerator pre-fills description and safety notes for a record being edited.
type InfoGenerator interface {
	Generate(ctx context.Context, identifier string) (generator.Info, error)
}

type Server struct {
	Store     *Store
	Generator InfoGenerator
	Log       *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Route("/products", func(pr chi.Router) {
		pr.Get("/", s.list)
		pr.Post("/", s.create)
		pr.Get("/{id}", s.get)
		pr.Put("/{id}", s.update)
		pr.Delete("/{id}", s.delete)
	})

	r.Post("/generate", s.generate)

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Store.Search(r.Context(), r.URL.Query().Get("q")))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok := s.Store.Get(r.Context(), id)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodeProduct(w, r)
	if !ok {
		return
	}

	p.ID = ""
	p.ImageURL = DefaultImageURL(p.Name)

	kit.WriteJSON(w, http.StatusCreated, s.Store.Save(r.Context(), p))
}

// update replaces the record at id. The image URL chosen at creation is kept.
func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodeProduct(w, r)
	if !ok {
		return
	}

	kit.WriteJSON(w, http.StatusOK, s.Store.Replace(r.Context(), chi.URLParam(r, "id"), p))
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	s.Store.Delete(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// generateReq names the chemical to describe. Identifier wins; otherwise the
// name is used, then the formula, as the editing form does.
type generateReq struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Formula    string `json:"formula"`
}

func (req generateReq) identifier() string {
	for _, v := range []string{req.Identifier, req.Name, req.Formula} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req generateReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	identifier := req.identifier()
	if identifier == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "identifier required", nil)
		return
	}

	info, err := s.Generator.Generate(r.Context(), identifier)
	if err != nil {
		var ge *generator.GenerationError
		if errors.As(err, &ge) {
			kit.WriteError(w, r, http.StatusBadGateway, ge.Error(), nil)
			return
		}
		s.logger().Error("generate failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, info)
}

// decodeProduct reads a record from the body and applies the editing rules:
// name and formula are required. It writes the error response itself.
func (s *Server) decodeProduct(w http.ResponseWriter, r *http.Request) (Product, bool) {
	var p Product
	if err := kit.DecodeJSON(w, r, &p); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return Product{}, false
	}

	p.Name = strings.TrimSpace(p.Name)
	p.Formula = strings.TrimSpace(p.Formula)
	if p.Name == "" || p.Formula == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "name and formula are required", nil)
		return Product{}, false
	}
	return p, true
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
