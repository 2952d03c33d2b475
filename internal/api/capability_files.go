package api

import (
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/logger"
	"github.com/albri/mdplane/internal/models"
)

const maxFileContentBytes = int64(models.MaxFileContentBytes)

// contentBlobKey is the key a file's bytes are mirrored under in the
// optional external content store, when cfg.Content.Backend == "s3".
// The kv record stays the source of truth for ETag/quota/search; the
// blob store is consulted on read so the backend is actually exercised
// rather than merely constructed.
func contentBlobKey(workspaceID, fileID string) string {
	return workspaceID + "/" + fileID
}

type fileResponse struct {
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	Content   string `json:"content"`
	ETag      string `json:"etag"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toFileResponse(f *models.File, etag string) fileResponse {
	return fileResponse{
		Filename:  path.Base(f.Path),
		Path:      f.Path,
		Content:   string(f.Content),
		ETag:      etag,
		CreatedAt: formatTimestamp(f.CreatedAt),
		UpdatedAt: formatTimestamp(f.UpdatedAt),
	}
}

// handleFileGet serves GET on any of /r, /a, /w (read permission
// suffices), returning 410 for a soft-deleted file (§4.4).
func (a *API) handleFileGet(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	if len(segments) == 0 {
		writeError(w, http.StatusNotFound, models.CodeFileNotFound, "file not found", nil)
		return
	}
	filePath := segmentsToPath(segments)
	f, err := a.deps.KV.GetFileByPath(res.WorkspaceID, filePath)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	if f.IsDeleted() {
		writeError(w, http.StatusGone, models.CodeGone, "file has been deleted", nil)
		return
	}
	if a.deps.Config.Content.Backend == "s3" {
		if blob, err := a.deps.Content.Get(r.Context(), contentBlobKey(res.WorkspaceID, f.ID)); err == nil {
			f.Content = blob
		} else {
			logger.Error("content store get failed, serving inline copy", "fileId", f.ID, "error", err)
		}
	}
	etag, err := a.deps.KV.ETag(res.WorkspaceID, f.ID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	w.Header().Set("ETag", etag)
	writeOK(w, http.StatusOK, toFileResponse(f, etag))
}

type putFileRequest struct {
	Content string `json:"content" validate:"required"`
	Author  string `json:"author"`
}

// handleFileOrFolderPut handles PUT under /w: a trailing-slash wildcard
// materializes an explicit folder, everything else creates or
// overwrites a file subject to ETag and quota checks (§4.4, §4.5).
func (a *API) handleFileOrFolderPut(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	if strings.HasSuffix(chi.URLParam(r, "*"), "/") {
		a.handleFolderCreate(w, r, res, segments)
		return
	}
	a.handleFilePutSegments(w, r, res, segments)
}

func (a *API) handleFilePutSegments(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	if len(segments) == 0 {
		writeError(w, http.StatusBadRequest, models.CodeInvalidPath, "a file path is required", nil)
		return
	}
	var req putFileRequest
	if derr := decodeAndValidate(r, &req); derr != nil {
		writeDomainError(w, http.StatusBadRequest, derr)
		return
	}
	if derr := credential.CheckBoundAuthor(res, req.Author); derr != nil {
		writeDomainError(w, http.StatusBadRequest, derr)
		return
	}

	content := []byte(req.Content)
	if int64(len(content)) > maxFileContentBytes {
		w.Header().Set("X-Content-Size-Limit", strconv.FormatInt(maxFileContentBytes, 10))
		writeError(w, http.StatusRequestEntityTooLarge, models.CodePayloadTooLarge,
			"file content exceeds the maximum allowed size", map[string]any{"limitBytes": maxFileContentBytes})
		return
	}

	filePath := segmentsToPath(segments)
	ifMatch := r.Header.Get("If-Match")

	ws, failed := a.workspaceOrServerError(r.Context(), w, res.WorkspaceID)
	if failed {
		return
	}

	existing, getErr := a.deps.KV.GetFileByPath(res.WorkspaceID, filePath)
	var existingSize int64
	exists := getErr == nil && !existing.IsDeleted()
	if exists {
		existingSize = int64(existing.Size())
	}
	if err := a.deps.Quota.CheckWrite(ws, existingSize, int64(len(content))); err != nil {
		writeBusinessError(w, err)
		return
	}

	var file *models.File
	var err error
	status := http.StatusOK
	if !exists {
		file, err = a.deps.KV.CreateFile(res.WorkspaceID, filePath, content)
		status = http.StatusCreated
	} else if existing.IsDeleted() {
		writeError(w, http.StatusGone, models.CodeGone, "file has been deleted", nil)
		return
	} else {
		file, err = a.deps.KV.UpdateFile(res.WorkspaceID, existing.ID, content, ifMatch)
	}
	if err != nil {
		// An ETag mismatch is 412, not the 409 statusForCode gives
		// CONFLICT for a claim race (spec.md §7).
		if derr, ok := models.AsDomainError(err); ok && derr.Code == models.CodeConflict {
			writeDomainError(w, http.StatusPreconditionFailed, derr)
			return
		}
		writeBusinessError(w, err)
		return
	}

	if a.deps.Config.Content.Backend == "s3" {
		if err := a.deps.Content.Put(r.Context(), contentBlobKey(res.WorkspaceID, file.ID), content); err != nil {
			logger.Error("content store put failed", "fileId", file.ID, "error", err)
		}
	}

	etag, _ := a.deps.KV.ETag(res.WorkspaceID, file.ID)
	w.Header().Set("ETag", etag)
	a.recordAudit(r, res, "file.put", file.ID, map[string]any{"path": filePath})
	a.notifyEvent(r.Context(), res.WorkspaceID, filePath, "file.updated", map[string]any{"path": filePath, "etag": etag})
	writeOK(w, status, toFileResponse(file, etag))
}

// handleFileOrFolderDelete handles DELETE under /w: a trailing-slash
// wildcard deletes an explicit (empty) folder, everything else soft- or
// hard-deletes a file per the ?permanent= query flag (§4.4, §4.5).
func (a *API) handleFileOrFolderDelete(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	if strings.HasSuffix(chi.URLParam(r, "*"), "/") || len(segments) == 0 {
		a.handleFolderDelete(w, r, res, segments)
		return
	}

	filePath := segmentsToPath(segments)
	f, err := a.deps.KV.GetFileByPath(res.WorkspaceID, filePath)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	if f.IsDeleted() {
		writeError(w, http.StatusGone, models.CodeGone, "file already deleted", nil)
		return
	}
	if err := a.deps.KV.SoftDeleteFile(res.WorkspaceID, f.ID); err != nil {
		writeBusinessError(w, err)
		return
	}
	if r.URL.Query().Get("permanent") == "true" {
		if _, err := a.deps.KV.PurgeDeletedFiles(res.WorkspaceID, farFuture()); err != nil {
			writeBusinessError(w, err)
			return
		}
		if a.deps.Config.Content.Backend == "s3" {
			if err := a.deps.Content.Delete(r.Context(), contentBlobKey(res.WorkspaceID, f.ID)); err != nil {
				logger.Error("content store delete failed", "fileId", f.ID, "error", err)
			}
		}
	}
	a.recordAudit(r, res, "file.delete", f.ID, map[string]any{"path": filePath, "permanent": r.URL.Query().Get("permanent") == "true"})
	a.notifyEvent(r.Context(), res.WorkspaceID, filePath, "file.deleted", map[string]any{"path": filePath})
	writeOK(w, http.StatusOK, map[string]any{"deleted": true})
}

// handleFolderList serves GET .../folders[/path] for any permission
// tier, 404ing on an unmaterialized folder (§4.5).
func (a *API) handleFolderList(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	folderPath := segmentsToPath(segments)
	if folderPath == "/" {
		folderPath = ""
	}
	if folderPath != "" {
		exists, err := a.deps.KV.FolderExists(res.WorkspaceID, folderPath)
		if err != nil {
			writeBusinessError(w, err)
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, models.CodeFolderNotFound, "folder not found", nil)
			return
		}
	}
	entries, err := a.deps.KV.ListFolderEntries(res.WorkspaceID, folderPath)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"path": folderPath, "entries": entries})
}

func (a *API) handleFolderCreate(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	folderPath := segmentsToPath(segments)
	if len(path.Base(folderPath)) > 255 {
		writeError(w, http.StatusBadRequest, models.CodeInvalidRequest, "folder name exceeds 255 characters", nil)
		return
	}
	folder, err := a.deps.KV.CreateFolder(res.WorkspaceID, folderPath)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	a.recordAudit(r, res, "folder.create", folder.Path, map[string]any{"path": folderPath})
	writeOK(w, http.StatusCreated, folder)
}

func (a *API) handleFolderDelete(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	folderPath := segmentsToPath(segments)
	if folderPath == "" || folderPath == "/" {
		writeError(w, http.StatusBadRequest, models.CodeInvalidRequest, "cannot delete the root folder", nil)
		return
	}
	entries, err := a.deps.KV.ListFolderEntries(res.WorkspaceID, folderPath)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	if len(entries) > 0 {
		writeError(w, http.StatusBadRequest, models.CodeInvalidRequest, "folder is not empty", nil)
		return
	}
	if err := a.deps.KV.DeleteFolder(res.WorkspaceID, folderPath); err != nil {
		writeBusinessError(w, err)
		return
	}
	a.recordAudit(r, res, "folder.delete", folderPath, nil)
	writeOK(w, http.StatusOK, map[string]any{"deleted": true})
}
