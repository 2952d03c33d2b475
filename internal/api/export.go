package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/models"
)

type exportJobResponse struct {
	ID          string                 `json:"id"`
	WorkspaceID string                 `json:"workspaceId"`
	Status      models.ExportJobStatus `json:"status"`
	ResultURL   string                 `json:"resultUrl,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   string                 `json:"createdAt"`
}

func toExportJobResponse(j *models.ExportJob) exportJobResponse {
	return exportJobResponse{
		ID:          j.ID,
		WorkspaceID: j.WorkspaceID,
		Status:      j.Status,
		ResultURL:   j.ResultURL,
		Error:       j.Error,
		CreatedAt:   formatTimestamp(j.CreatedAt),
	}
}

// handleCreateExportJob implements POST /workspaces/{ws}/export: it
// records the request and returns immediately with a pending job. There
// is no worker that ever transitions the job past pending — archive
// generation is out of scope (see SPEC_FULL.md §3.1) — so this exists to
// give the export_jobs schema a reachable route rather than to produce
// a usable export.
func (a *API) handleCreateExportJob(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
	job := &models.ExportJob{
		WorkspaceID: res.WorkspaceID,
		Status:      models.ExportJobPending,
	}
	created, err := a.deps.SQL.CreateExportJob(r.Context(), job)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	a.recordAudit(r, res, "export.create", created.ID, nil)
	writeOK(w, http.StatusAccepted, toExportJobResponse(created))
}

// handleGetExportJob implements GET /workspaces/{ws}/export/{id}.
func (a *API) handleGetExportJob(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
	id := chi.URLParam(r, "id")
	job, err := a.deps.SQL.GetExportJob(r.Context(), res.WorkspaceID, id)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	writeOK(w, http.StatusOK, toExportJobResponse(job))
}
