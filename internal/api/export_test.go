package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleCreateAndGetExportJob(t *testing.T) {
	a := newTestAPI(t)
	boot, cookie := claimedWorkspace(t, a)

	req := httptest.NewRequest(http.MethodPost, "/workspaces/"+boot.WorkspaceID+"/export", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created exportJobResponse
	decodeEnvelope(t, w, &created)
	if created.Status != "pending" {
		t.Errorf("status = %q, want pending", created.Status)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/workspaces/"+boot.WorkspaceID+"/export/"+created.ID, nil)
	getReq.AddCookie(cookie)
	getW := httptest.NewRecorder()
	a.Router().ServeHTTP(getW, getReq)

	if getW.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", getW.Code, getW.Body.String())
	}
	var fetched exportJobResponse
	decodeEnvelope(t, getW, &fetched)
	if fetched.ID != created.ID {
		t.Errorf("fetched id = %q, want %q", fetched.ID, created.ID)
	}
}

func TestHandleGetExportJob_NotFound(t *testing.T) {
	a := newTestAPI(t)
	boot, cookie := claimedWorkspace(t, a)

	req := httptest.NewRequest(http.MethodGet, "/workspaces/"+boot.WorkspaceID+"/export/exp_missing", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body = %s", w.Code, w.Body.String())
	}
}
