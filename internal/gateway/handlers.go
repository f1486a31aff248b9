package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/canonica-labs/lakequery/internal/auth"
	"github.com/canonica-labs/lakequery/internal/capabilities"
	"github.com/canonica-labs/lakequery/internal/errors"
	"github.com/canonica-labs/lakequery/internal/sql"
	"github.com/canonica-labs/lakequery/internal/status"
)

// handleHealth answers GET /health. It is intentionally unauthenticated and
// dependency-free - a liveness probe, not a readiness probe.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// handleReadyz answers GET /readyz, checking every wired dependency. Per
// docs/plan.md, readiness must reflect the real state of storage and engine
// adapters, not just process liveness.
func (g *Gateway) handleReadyz(w http.ResponseWriter, r *http.Request) {
	components := map[string]ComponentHealth{}
	ready := true

	if err := g.repo.CheckConnectivity(r.Context()); err != nil {
		components["database"] = ComponentHealth{Ready: false, Message: err.Error()}
		ready = false
	} else {
		components["database"] = ComponentHealth{Ready: true, Message: "ok"}
	}

	engineErrs := g.adapters.CheckAllHealth(r.Context())
	if len(engineErrs) == 0 {
		components["engines"] = ComponentHealth{Ready: true, Message: "ok"}
	} else {
		msg := ""
		for name, err := range engineErrs {
			if msg != "" {
				msg += "; "
			}
			msg += name + ": " + err.Error()
			ready = false
		}
		components["engines"] = ComponentHealth{Ready: false, Message: msg}
	}

	components["metadata"] = ComponentHealth{Ready: true, Message: "ok"}

	resp := ReadyzResponse{Components: components}
	if ready {
		resp.Status = "ready"
		writeJSON(w, http.StatusOK, resp)
	} else {
		resp.Status = "not_ready"
		writeJSON(w, http.StatusServiceUnavailable, resp)
	}
}

// handleListTables answers GET /tables.
func (g *Gateway) handleListTables(w http.ResponseWriter, r *http.Request, user *auth.User) {
	all, err := g.repo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	summaries := make([]TableSummary, 0, len(all))
	for _, vt := range all {
		summaries = append(summaries, TableSummary{
			Name:         vt.Name,
			Capabilities: capabilityStrings(vt.Capabilities),
			Constraints:  constraintStrings(vt.Constraints),
		})
	}
	writeJSON(w, http.StatusOK, TablesResponse{Tables: summaries})
}

// handleDescribeTable answers GET /tables/{name}.
func (g *Gateway) handleDescribeTable(w http.ResponseWriter, r *http.Request, user *auth.User) {
	name := r.PathValue("name")
	vt, err := g.repo.Get(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	sources := make([]SourceInfo, 0, len(vt.Sources))
	for _, s := range vt.Sources {
		sources = append(sources, SourceInfo{Format: string(s.Format), Location: s.Location})
	}

	writeJSON(w, http.StatusOK, TableDescribeResponse{
		Name:         vt.Name,
		Capabilities: capabilityStrings(vt.Capabilities),
		Constraints:  constraintStrings(vt.Constraints),
		Sources:      sources,
	})
}

// handleListEngines answers GET /engines.
func (g *Gateway) handleListEngines(w http.ResponseWriter, r *http.Request, user *auth.User) {
	engines := g.router.Engines()
	summaries := make([]EngineSummary, 0, len(engines))
	for _, e := range engines {
		summaries = append(summaries, EngineSummary{Name: e.Name, Available: e.Available})
	}
	writeJSON(w, http.StatusOK, EnginesResponse{Engines: summaries})
}

// handleDescribeEngine answers GET /engines/{name}.
func (g *Gateway) handleDescribeEngine(w http.ResponseWriter, r *http.Request, user *auth.User) {
	name := r.PathValue("name")
	engine, ok := g.router.GetEngine(name)
	if !ok {
		writeError(w, errors.NewEngineUnavailable([]string{name}))
		return
	}
	writeJSON(w, http.StatusOK, EngineDescribeResponse{Name: engine.Name, Available: engine.Available})
}

// handleExplain answers POST /query/explain. It does not require
// authorization on the referenced tables - explain reveals the plan, not
// the data, and is used by callers to understand routing decisions before
// committing to a query.
func (g *Gateway) handleExplain(w http.ResponseWriter, r *http.Request, user *auth.User) {
	req, logical, ok := g.decodeAndParse(w, r)
	if !ok {
		return
	}

	plan, err := g.planner.Plan(r.Context(), logical)
	if err != nil {
		writeError(w, err)
		return
	}

	explanation, err := g.planner.Explain(r.Context(), logical)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ExplainResponse{
		SQL:          req.SQL,
		Engine:       plan.Engine,
		Tables:       logical.Tables,
		Capabilities: capabilityStrings(plan.RequiredCapabilities),
		Plan:         explanation,
	})
}

// handleValidate answers POST /query/validate. Per the CLI's validate
// command, this endpoint always returns 200 - validity is reported in the
// body, not the status code.
func (g *Gateway) handleValidate(w http.ResponseWriter, r *http.Request, user *auth.User) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, ValidateResponse{Valid: false, Error: "invalid JSON body"})
		return
	}

	logical, err := g.parser.Parse(req.SQL)
	if err != nil {
		writeJSON(w, http.StatusOK, ValidateResponse{Valid: false, Error: err.Error()})
		return
	}

	if err := g.authz.Authorize(r.Context(), user, logical.Tables, capabilities.CapabilityRead); err != nil {
		writeJSON(w, http.StatusOK, ValidateResponse{Valid: false, Error: err.Error()})
		return
	}

	if _, err := g.planner.Plan(r.Context(), logical); err != nil {
		writeJSON(w, http.StatusOK, ValidateResponse{Valid: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ValidateResponse{Valid: true})
}

// handleQuery answers POST /query: the full authenticate -> parse ->
// authorize -> plan -> execute -> audit path.
//
// Authorization is checked before planning on purpose. Planning is what
// resolves table existence (via the TableRegistry), so checking access
// first means a query against an unregistered table is rejected with the
// same 403 a query against a table the caller simply isn't permitted to see
// would get - the gateway never reveals whether an unauthorized table
// exists.
func (g *Gateway) handleQuery(w http.ResponseWriter, r *http.Request, user *auth.User) {
	req, logical, ok := g.decodeAndParse(w, r)
	if !ok {
		return
	}

	ctx, cancel := queryContext(r)
	defer cancel()

	if err := g.authz.Authorize(ctx, user, logical.Tables, capabilities.CapabilityRead); err != nil {
		g.logQuery(user, req.SQL, logical.Tables, "", false, err, 0)
		writeError(w, err)
		return
	}

	start := time.Now()

	plan, err := g.planner.Plan(ctx, logical)
	if err != nil {
		g.logQuery(user, req.SQL, logical.Tables, "", false, err, time.Since(start))
		writeError(w, err)
		return
	}

	adapter, ok2 := g.adapters.Get(plan.Engine)
	if !ok2 {
		err := errors.NewEngineUnavailable([]string{plan.Engine})
		g.logQuery(user, req.SQL, logical.Tables, plan.Engine, false, err, time.Since(start))
		writeError(w, err)
		return
	}

	result, err := adapter.Execute(ctx, plan)
	if err != nil {
		g.logQuery(user, req.SQL, logical.Tables, plan.Engine, false, err, time.Since(start))
		writeError(w, err)
		return
	}

	duration := time.Since(start)
	g.logQuery(user, req.SQL, logical.Tables, plan.Engine, true, nil, duration)

	writeJSON(w, http.StatusOK, QueryResponse{
		QueryID:  newQueryID(),
		Columns:  result.Columns,
		Rows:     rowsToMaps(result.Columns, result.Rows),
		RowCount: result.RowCount,
		Engine:   plan.Engine,
		Duration: duration.String(),
	})
}

// handleAuditSummary answers GET /audit/summary.
func (g *Gateway) handleAuditSummary(w http.ResponseWriter, r *http.Request, user *auth.User) {
	summary, err := g.audit.GetAuditSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// decodeAndParse decodes a QueryRequest body and parses its SQL, writing an
// error response and returning ok=false on any failure.
func (g *Gateway) decodeAndParse(w http.ResponseWriter, r *http.Request) (QueryRequest, *sql.LogicalPlan, bool) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewQueryRejected("", "invalid JSON body", "send a JSON object with a sql field"))
		return req, nil, false
	}

	logical, err := g.parser.Parse(req.SQL)
	if err != nil {
		writeError(w, err)
		return req, nil, false
	}

	return req, logical, true
}

func (g *Gateway) logQuery(user *auth.User, sqlText string, tables []string, engine string, accepted bool, err error, duration time.Duration) {
	entry := status.QueryAuditEntry{
		User:     user.ID,
		SQL:      sqlText,
		Tables:   tables,
		Engine:   engine,
		Accepted: accepted,
		Duration: duration,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	g.audit.LogQuery(entry)
}

func capabilityStrings(caps []capabilities.Capability) []string {
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}

func constraintStrings(cons []capabilities.Constraint) []string {
	if len(cons) == 0 {
		return nil
	}
	out := make([]string, len(cons))
	for i, c := range cons {
		out[i] = string(c)
	}
	return out
}

func rowsToMaps(columns []string, rows [][]interface{}) []map[string]interface{} {
	if len(rows) == 0 {
		return nil
	}
	out := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		m := make(map[string]interface{}, len(columns))
		for j, col := range columns {
			if j < len(row) {
				m[col] = row[j]
			}
		}
		out[i] = m
	}
	return out
}
