package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/615RealtyGuy/rf401-timeline/internal/routing"
	"github.com/615RealtyGuy/rf401-timeline/internal/rules"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/clausemap"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/ports"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/infrastructure/persistence"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/presentation/controllers"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/services"
)

func NewHandler() (http.Handler, error) {
	return NewHandlerWithOptions(HandlerOptions{})
}

type HandlerOptions struct {
	DealStore      ports.DealStore
	Catalog        *clausemap.Catalog
	RuleCandidates []rules.Candidate
}

func NewHandlerWithOptions(opts HandlerOptions) (http.Handler, error) {
	allowlistPath := os.Getenv("ALLOWLIST_PATH")
	if allowlistPath == "" {
		p, err := defaultAllowlistPath()
		if err != nil {
			return nil, err
		}
		allowlistPath = p
	}

	a, err := routing.LoadAllowlist(allowlistPath)
	if err != nil {
		return nil, err
	}

	classifier, err := routing.NewClassifier(a, "server")
	if err != nil {
		return nil, err
	}

	catalog := opts.Catalog
	if catalog == nil {
		if p := os.Getenv("CLAUSE_MAP_PATH"); p != "" {
			c, err := clausemap.LoadCatalog(p)
			if err != nil {
				return nil, err
			}
			catalog = c
		} else {
			catalog = clausemap.Default()
		}
	}

	store := opts.DealStore
	if store == nil {
		switch strings.ToLower(strings.TrimSpace(os.Getenv("DEAL_STORE"))) {
		case "memory":
			store = persistence.NewDealMemoryStore()
		case "", "pg":
			pool, err := pgxpool.New(context.Background(), dbDSNFromEnv())
			if err != nil {
				return nil, err
			}
			store = persistence.NewDealPGStore(pool)
		default:
			return nil, errors.New("server: unknown DEAL_STORE (want pg or memory)")
		}
	}

	facade := services.NewDealsFacade(store, services.NewMaterializer(catalog))
	deals := controllers.DealsController{Facade: facade}

	candidates := opts.RuleCandidates
	if candidates == nil {
		candidates = rules.DefaultCandidates()
	}

	router := routing.NewRouter(classifier)

	router.Handle(routing.RouteClassOps, http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))

	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/clause-map", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleClauseMapAPI(w, r, catalog)
	}))

	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/deals", http.HandlerFunc(deals.HandleDealsAPI))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/deals", http.HandlerFunc(deals.HandleDealsAPI))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/deals/{deal_id}", http.HandlerFunc(deals.HandleDealAPI))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPatch, "/api/deals/{deal_id}", http.HandlerFunc(deals.HandleDealAPI))
	router.Handle(routing.RouteClassPublicAPI, http.MethodDelete, "/api/deals/{deal_id}", http.HandlerFunc(deals.HandleDealAPI))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPut, "/api/deals/{deal_id}/manual-entry", http.HandlerFunc(deals.HandleManualEntryAPI))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPut, "/api/deals/{deal_id}/overrides/{clause_id}", http.HandlerFunc(deals.HandleOverrideAPI))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/deals/{deal_id}/tasks/{task_id}/status", http.HandlerFunc(deals.HandleTaskStatusAPI))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/deals/{deal_id}/refresh", http.HandlerFunc(deals.HandleRefreshAPI))

	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/deals/{deal_id}/calendar-links", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleCalendarLinksAPI(w, r, store)
	}))
	router.Handle(routing.RouteClassExport, http.MethodGet, "/api/deals/{deal_id}/export/ics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleICSExportAPI(w, r, store)
	}))

	router.Handle(routing.RouteClassInternalAPI, http.MethodPost, "/api/internal/rules/evaluate", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleRulesEvaluateAPI(w, r, store, candidates)
	}))

	return router, nil
}

func MustNewHandler() http.Handler {
	h, err := NewHandler()
	if err != nil {
		panic(errors.New("server: failed to build handler: " + err.Error()))
	}
	return h
}

func defaultAllowlistPath() (string, error) {
	path := filepath.Join("config", "routing", "allowlist.yaml")
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: allowlist not found")
}
