package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/models"
	"github.com/albri/mdplane/internal/orchestration"
)

// orchestrationView bundles the derived board plus its summary counts and
// the per-agent workload list, the single payload shape shared by both the
// capability-URL and session-authenticated orchestration endpoints (§4.2).
type orchestrationView struct {
	Tasks   []*orchestration.Task  `json:"tasks"`
	Summary orchestration.Summary  `json:"summary"`
	Agents  []*orchestration.Agent `json:"agents"`
}

func (a *API) buildOrchestrationView(workspaceID string, f orchestration.Filter) (orchestrationView, string, error) {
	appends, err := a.deps.KV.ListWorkspaceAppends(workspaceID)
	if err != nil {
		return orchestrationView{}, "", err
	}
	derived := orchestration.Derive(appends, time.Now())
	if f.Sort == "" {
		f.Sort = orchestration.SortPriority
	}
	page, next, err := orchestration.Query(derived.Tasks, f)
	if err != nil {
		return orchestrationView{}, "", err
	}

	heartbeats, err := a.deps.KV.ListHeartbeats(workspaceID)
	if err != nil {
		return orchestrationView{}, "", err
	}
	return orchestrationView{
		Tasks:   page,
		Summary: orchestration.Summarize(derived.Tasks),
		Agents:  orchestration.AgentWorkloads(derived, heartbeats),
	}, next, nil
}

// orchestrationFilterFromQuery builds the orchestration.Filter from the
// documented query params (§4.2): status and priority accept a
// comma-separated subset, validated against the known enum; an unknown
// value or a malformed limit is a 400 INVALID_REQUEST, not a silent
// fallback to defaults.
func orchestrationFilterFromQuery(r *http.Request) (orchestration.Filter, error) {
	q := r.URL.Query()

	statuses, err := orchestration.ParseStatuses(q.Get("status"))
	if err != nil {
		return orchestration.Filter{}, models.NewError(models.CodeInvalidRequest, err.Error())
	}
	priorities, err := orchestration.ParsePriorities(q.Get("priority"))
	if err != nil {
		return orchestration.Filter{}, models.NewError(models.CodeInvalidRequest, err.Error())
	}

	f := orchestration.Filter{
		Statuses:   statuses,
		Priorities: priorities,
		Agent:      q.Get("agent"),
		File:       q.Get("file"),
		Folder:     q.Get("folder"),
		Label:      q.Get("label"),
		Cursor:     q.Get("cursor"),
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return orchestration.Filter{}, models.NewError(models.CodeInvalidRequest, "since must be an RFC3339 timestamp")
		}
		f.Since = &t
	}
	if sort := q.Get("sort"); sort != "" {
		f.Sort = orchestration.SortField(sort)
	}
	if lim := q.Get("limit"); lim != "" {
		n, err := strconv.Atoi(lim)
		if err != nil {
			return orchestration.Filter{}, models.NewError(models.CodeInvalidRequest, "limit must be an integer")
		}
		f.Limit = &n
	}
	return f, nil
}

// handleCapabilityOrchestration serves GET .../orchestration under a
// capability key: filtered/sorted/paginated tasks plus summary and agent
// workload (§4.2). The default sort is by priority, not insertion order.
func (a *API) handleCapabilityOrchestration(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	f, ferr := orchestrationFilterFromQuery(r)
	if ferr != nil {
		derr, _ := models.AsDomainError(ferr)
		writeDomainError(w, http.StatusBadRequest, derr)
		return
	}
	view, next, err := a.buildOrchestrationView(res.WorkspaceID, f)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	writeOKPage(w, view, next)
}

// handleSessionOrchestration is the equivalent session-authenticated view
// mounted under /workspaces/{ws}/orchestration.
func (a *API) handleSessionOrchestration(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
	f, ferr := orchestrationFilterFromQuery(r)
	if ferr != nil {
		derr, _ := models.AsDomainError(ferr)
		writeDomainError(w, http.StatusBadRequest, derr)
		return
	}
	view, next, err := a.buildOrchestrationView(res.WorkspaceID, f)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	writeOKPage(w, view, next)
}

// handleCapabilitySearch serves GET .../search under a capability key
// (§4.10): a bounded substring scan over file paths/content and append
// content.
func (a *API) handleCapabilitySearch(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, models.CodeInvalidRequest, "q is required", nil)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, models.CodeInvalidRequest, "limit must be an integer", nil)
			return
		}
		limit = n
	}
	result, err := a.deps.KV.Search(res.WorkspaceID, query, limit)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	writeOK(w, http.StatusOK, result)
}
