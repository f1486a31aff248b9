// Package gateway implements the Canonic Gateway HTTP server: the single
// entry point that authenticates requests and routes a query to one of
// three execution paths: POST /query resolves a registered virtual table
// and runs it through the table-capability planner/adapter path; POST
// /query/core runs the dialect-agnostic parse -> validate -> optimize ->
// dispatch pipeline (internal/queryfe, internal/validator,
// internal/optimizer) against a single source; POST /query/federated runs
// a cross-engine join through the federation coordinator
// (internal/federation's analyzer/decomposer/pushdown/join machinery).
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/canonica-labs/lakequery/internal/adapters"
	"github.com/canonica-labs/lakequery/internal/auth"
	"github.com/canonica-labs/lakequery/internal/capabilities"
	"github.com/canonica-labs/lakequery/internal/federation"
	"github.com/canonica-labs/lakequery/internal/planner"
	"github.com/canonica-labs/lakequery/internal/ports"
	"github.com/canonica-labs/lakequery/internal/query"
	"github.com/canonica-labs/lakequery/internal/queryfe"
	"github.com/canonica-labs/lakequery/internal/router"
	"github.com/canonica-labs/lakequery/internal/sources"
	"github.com/canonica-labs/lakequery/internal/sql"
	"github.com/canonica-labs/lakequery/internal/status"
	"github.com/canonica-labs/lakequery/internal/storage"
	"github.com/canonica-labs/lakequery/internal/tables"
	"github.com/canonica-labs/lakequery/internal/validator"
)

// Config configures a Gateway.
type Config struct {
	// Version is reported by /health and /readyz for operational visibility.
	Version string

	// ProductionMode disables dev-only conveniences. Per execution-checklist.md
	// 4.1, a gateway constructed in production mode with an in-memory
	// repository is a misconfiguration callers should avoid, though the
	// gateway itself does not refuse to start over it — that check lives in
	// cmd/lakegw, which decides which storage.TableRepository to construct.
	ProductionMode bool
}

// Gateway is the canonica HTTP server. It is stateless beyond its wired
// dependencies and safe for concurrent use.
type Gateway struct {
	auth     auth.Authenticator
	authz    *auth.AuthorizationService
	repo     storage.TableRepository
	router   *router.Router
	adapters *adapters.AdapterRegistry
	parser   *sql.Parser
	planner  *planner.Planner
	audit    status.AuditLogger

	// federated runs cross-engine joins through the teacher's federation
	// coordinator (analyzer -> decomposer -> pushdown -> join) against the
	// same adapters, bridged via federation.BridgeAdapterRegistry.
	federated *federation.FederatedExecutor

	// core runs the parse -> validate -> optimize -> dispatch pipeline
	// (internal/queryfe, internal/validator, internal/optimizer) for
	// single-source queries, dispatching through sources.
	core    *query.Service
	sources ports.SourceRegistry

	cfg Config
	mux *http.ServeMux
}

// NewGateway constructs a Gateway. Per execution-checklist.md 4.1 and 4.3,
// a repository and a non-empty adapter registry are mandatory — the gateway
// refuses to start without them rather than serving requests it cannot
// honor.
func NewGateway(authenticator auth.Authenticator, repo storage.TableRepository, engineRouter *router.Router, adapterRegistry *adapters.AdapterRegistry, cfg Config) (*Gateway, error) {
	if authenticator == nil {
		return nil, fmt.Errorf("gateway: authenticator is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("gateway: repository is required")
	}
	if engineRouter == nil {
		return nil, fmt.Errorf("gateway: engine router is required")
	}
	if adapterRegistry == nil || adapterRegistry.IsEmpty() {
		return nil, fmt.Errorf("gateway: at least one engine adapter must be registered")
	}

	authz := auth.NewAuthorizationService()
	registry := tableRegistryAdapter{repo: repo}

	fedRegistry := federation.BridgeAdapterRegistry(adapterRegistry)
	monitor := federation.NewFederationMonitor()
	sourceRegistry := sources.NewRegistry(fedRegistry, monitor)

	g := &Gateway{
		auth:      authenticator,
		authz:     authz,
		repo:      repo,
		router:    engineRouter,
		adapters:  adapterRegistry,
		parser:    sql.NewParser(),
		planner:   planner.NewPlanner(registry, engineRouter),
		audit:     status.NewMockAuditLogger(),
		federated: federation.NewFederatedExecutor(fedRegistry, sql.NewParser(), repo),
		core:      query.NewService(queryfe.NewRegistry(), validator.NewEngine(), sourceRegistry),
		sources:   sourceRegistry,
		cfg:       cfg,
	}
	g.mux = g.buildMux()
	return g, nil
}

// GrantAccess grants a role READ/TIME_TRAVEL-style access to a table. It
// exists so an administrative surface (CLI or bootstrap) can provision the
// deny-by-default authorization model without reaching into internal/auth
// directly.
func (g *Gateway) GrantAccess(role, table string, cap capabilities.Capability) {
	g.authz.GrantAccess(role, table, cap)
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

func (g *Gateway) buildMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /readyz", g.handleReadyz)

	mux.HandleFunc("GET /tables", g.withAuth(g.handleListTables))
	mux.HandleFunc("GET /tables/{name}", g.withAuth(g.handleDescribeTable))

	mux.HandleFunc("GET /engines", g.withAuth(g.handleListEngines))
	mux.HandleFunc("GET /engines/{name}", g.withAuth(g.handleDescribeEngine))

	mux.HandleFunc("POST /query", g.withAuth(g.handleQuery))
	mux.HandleFunc("POST /query/explain", g.withAuth(g.handleExplain))
	mux.HandleFunc("POST /query/validate", g.withAuth(g.handleValidate))
	mux.HandleFunc("POST /query/core", g.withAuth(g.handleCoreQuery))
	mux.HandleFunc("POST /query/federated", g.withAuth(g.handleFederatedQuery))

	mux.HandleFunc("GET /sources", g.withAuth(g.handleListSources))

	mux.HandleFunc("GET /audit/summary", g.withAuth(g.handleAuditSummary))

	return mux
}

// authHandler is an http.HandlerFunc that also receives the authenticated
// user, so handlers never need to re-derive it.
type authHandler func(w http.ResponseWriter, r *http.Request, user *auth.User)

// withAuth wraps a handler with bearer-token authentication. Per
// phase-2-spec.md, every endpoint except /health and /readyz requires a
// valid token.
func (g *Gateway) withAuth(next authHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		user, err := g.auth.ValidateToken(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, user)
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimPrefix(header, prefix)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := statusForError(err)
	writeJSON(w, status, body)
}

// tableRegistryAdapter bridges storage.TableRepository into
// planner.TableRegistry so the planner never needs to know about
// persistence.
type tableRegistryAdapter struct {
	repo storage.TableRepository
}

func (a tableRegistryAdapter) GetTable(ctx context.Context, name string) (*tables.VirtualTable, error) {
	return a.repo.Get(ctx, name)
}

// queryContext bounds how long a single gateway request may run.
func queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 30*time.Second)
}

func newQueryID() string {
	return uuid.NewString()
}
