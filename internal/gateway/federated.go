package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/canonica-labs/lakequery/internal/auth"
	"github.com/canonica-labs/lakequery/internal/capabilities"
	"github.com/canonica-labs/lakequery/internal/errors"
	"github.com/canonica-labs/lakequery/internal/federation"
	"github.com/canonica-labs/lakequery/internal/optimizer"
	"github.com/canonica-labs/lakequery/internal/queryfe"
	"github.com/canonica-labs/lakequery/internal/validator"
)

// handleCoreQuery answers POST /query/core: parse -> validate -> optimize
// -> dispatch over a single source, via internal/query.Service. A plan
// that scans more than one table is rejected and pointed at
// /query/federated rather than silently running against one source.
func (g *Gateway) handleCoreQuery(w http.ResponseWriter, r *http.Request, user *auth.User) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewQueryRejected("", "invalid JSON body", "send a JSON object with a sql field"))
		return
	}

	ctx, cancel := queryContext(r)
	defer cancel()

	vctx := validator.DefaultContext()
	vctx.Permissions[validator.PermSelect] = true

	result, err := g.core.Plan(queryfe.DialectSQL, req.SQL, vctx)
	if err != nil {
		writeError(w, errors.NewSyntaxError(req.SQL, 1, 1, err.Error()))
		return
	}
	if !result.Accepted {
		writeJSON(w, http.StatusBadRequest, CoreQueryResponse{Accepted: false, Errors: validationMessages(result.Validation)})
		return
	}

	tables := optimizer.ScanTables(result.Plan)
	if err := g.authz.Authorize(ctx, user, tables, capabilities.CapabilityRead); err != nil {
		g.logQuery(user, req.SQL, tables, "core", false, err, 0)
		writeError(w, err)
		return
	}

	start := time.Now()
	_, rows, err := g.core.Execute(ctx, queryfe.DialectSQL, req.SQL, vctx)
	if err != nil {
		g.logQuery(user, req.SQL, tables, "core", false, err, time.Since(start))
		writeError(w, errors.NewQueryRejected(req.SQL, err.Error(), "cross-source queries run through /query/federated"))
		return
	}
	duration := time.Since(start)
	g.logQuery(user, req.SQL, tables, "core", true, nil, duration)

	writeJSON(w, http.StatusOK, CoreQueryResponse{
		Accepted: true,
		Applied:  result.Applied,
		Rows:     rows,
		RowCount: len(rows),
		Duration: duration.String(),
		QueryID:  newQueryID(),
	})
}

// handleFederatedQuery answers POST /query/federated: a cross-engine join
// executed through the federation coordinator (internal/federation),
// which itself bridges this gateway's adapter registry via
// federation.BridgeAdapterRegistry.
func (g *Gateway) handleFederatedQuery(w http.ResponseWriter, r *http.Request, user *auth.User) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewQueryRejected("", "invalid JSON body", "send a JSON object with a sql field"))
		return
	}

	ctx, cancel := queryContext(r)
	defer cancel()

	plan, err := g.federated.Plan(ctx, req.SQL)
	if err != nil {
		writeError(w, errors.NewQueryRejected(req.SQL, err.Error(), "check the query syntax and table references"))
		return
	}

	tableNames := federatedTableNames(plan.Analysis)
	if err := g.authz.Authorize(ctx, user, tableNames, capabilities.CapabilityRead); err != nil {
		g.logQuery(user, req.SQL, tableNames, "federated", false, err, 0)
		writeError(w, err)
		return
	}

	start := time.Now()
	stream, err := g.federated.Execute(ctx, req.SQL)
	if err != nil {
		g.logQuery(user, req.SQL, tableNames, "federated", false, err, time.Since(start))
		writeError(w, errors.NewQueryRejected(req.SQL, err.Error(), "check that every referenced engine is available"))
		return
	}
	defer stream.Close()

	rows, err := federation.CollectStream(ctx, stream)
	if err != nil {
		g.logQuery(user, req.SQL, tableNames, "federated", false, err, time.Since(start))
		writeError(w, errors.NewQueryRejected(req.SQL, err.Error(), "check engine availability and query shape"))
		return
	}
	duration := time.Since(start)
	g.logQuery(user, req.SQL, tableNames, "federated", true, nil, duration)

	var columns []string
	if schema := stream.Schema(); schema != nil {
		for _, c := range schema.Columns {
			columns = append(columns, c.Name)
		}
	}
	mapped := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		mapped[i] = map[string]interface{}(row)
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		QueryID:  newQueryID(),
		Columns:  columns,
		Rows:     mapped,
		RowCount: len(rows),
		Engine:   "federated",
		Duration: duration.String(),
	})
}

// handleListSources answers GET /sources: every engine adapter as seen
// through the federated source registry, with health derived from the
// federation monitor's tracked metrics when available.
func (g *Gateway) handleListSources(w http.ResponseWriter, r *http.Request, user *auth.User) {
	list, err := g.sources.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]SourceSummary, len(list))
	for i, d := range list {
		out[i] = SourceSummary{
			ID:                d.ID,
			Health:            string(d.Health()),
			AvgResponseTimeMs: d.AvgResponseTimeMs,
			ErrorRate:         d.ErrorRate,
		}
	}
	writeJSON(w, http.StatusOK, SourcesResponse{Sources: out})
}

// federatedTableNames flattens a federated analysis's per-engine table
// groups into a de-duplicated name list for authorization.
func federatedTableNames(analysis *federation.QueryAnalysis) []string {
	if analysis == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, refs := range analysis.TablesByEngine {
		for _, t := range refs {
			name := t.FullName()
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// validationMessages flattens validator results into display strings.
func validationMessages(results []validator.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = string(r.Level) + ": " + r.Message
	}
	return out
}
