package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/ansuz/internal/ai"
	"github.com/starford/ansuz/internal/chat"
	"github.com/starford/ansuz/internal/extract"
	"github.com/starford/ansuz/internal/ingest"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/testutil"
)

// testEnv wires a temp store, an unconfigured AI client, the pipeline,
// and the router. authToken="" runs with auth disabled.
func testEnv(t *testing.T, authToken string) (store.Store, http.Handler) {
	t.Helper()
	st := testutil.TestStore(t)

	client := ai.NewClient("http://localhost:0", "test", "")
	pipeline := ingest.NewPipeline(extract.NewRegistry(), client, st)
	chatSvc := chat.NewService(st, client, nil)
	h := NewHandler(st, pipeline, chatSvc, nil)
	router := NewRouter(h, authToken != "", authToken, nil)
	return st, router
}

func createNotebook(t *testing.T, router http.Handler, title string) models.Notebook {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"title": title})
	req := httptest.NewRequest(http.MethodPost, "/notebooks", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var nb models.Notebook
	if err := json.Unmarshal(w.Body.Bytes(), &nb); err != nil {
		t.Fatalf("decode notebook: %v", err)
	}
	return nb
}

func TestCreateAndGetNotebook(t *testing.T) {
	_, router := testEnv(t, "")
	nb := createNotebook(t, router, "Research")

	req := httptest.NewRequest(http.MethodGet, "/notebooks/"+nb.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got models.Notebook
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.ID != nb.ID || got.Title != "Research" {
		t.Errorf("got %+v", got)
	}
}

func TestCreateNotebookRequiresTitle(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/notebooks", bytes.NewReader([]byte(`{"description": "no title"}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListNotebooks(t *testing.T) {
	_, router := testEnv(t, "")
	createNotebook(t, router, "one")
	createNotebook(t, router, "two")

	req := httptest.NewRequest(http.MethodGet, "/notebooks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Notebooks []models.Notebook `json:"notebooks"`
		Total     int               `json:"total"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Notebooks) != 2 {
		t.Errorf("total = %d, len = %d, want 2", resp.Total, len(resp.Notebooks))
	}
}

func TestPatchNotebook(t *testing.T) {
	_, router := testEnv(t, "")
	nb := createNotebook(t, router, "before")

	body := []byte(`{"title": "after", "tags": ["storage"]}`)
	req := httptest.NewRequest(http.MethodPatch, "/notebooks/"+nb.ID, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	var got models.Notebook
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "after" || len(got.Tags) != 1 || got.Tags[0] != "storage" {
		t.Errorf("got %+v", got)
	}
}

func TestDeleteNotebook(t *testing.T) {
	_, router := testEnv(t, "")
	nb := createNotebook(t, router, "doomed")

	req := httptest.NewRequest(http.MethodDelete, "/notebooks/"+nb.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notebooks/"+nb.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

// multipartBody builds a multipart form with one "files" part per entry.
func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(content))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadSources(t *testing.T) {
	st, router := testEnv(t, "")
	nb := createNotebook(t, router, "docs")

	body, contentType := multipartBody(t, map[string]string{
		"a.txt":    "the first document body",
		"data.xyz": "????",
	})
	req := httptest.NewRequest(http.MethodPost, "/notebooks/"+nb.ID+"/sources", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Files []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"files"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Files) != 2 {
		t.Fatalf("files = %d, want 2", len(resp.Files))
	}
	byName := map[string]string{}
	for _, f := range resp.Files {
		byName[f.Name] = f.Status
	}
	if byName["a.txt"] != "success" {
		t.Errorf("a.txt status = %q", byName["a.txt"])
	}
	if byName["data.xyz"] != "error" {
		t.Errorf("data.xyz status = %q", byName["data.xyz"])
	}

	// Only the successful file was committed.
	files, err := st.GetFilesByNotebook(nb.ID)
	if err != nil {
		t.Fatalf("GetFilesByNotebook: %v", err)
	}
	if len(files) != 1 || files[0].Name != "a.txt" {
		t.Errorf("persisted = %+v", files)
	}
}

func TestUploadUnknownNotebook(t *testing.T) {
	_, router := testEnv(t, "")

	body, contentType := multipartBody(t, map[string]string{"a.txt": "text"})
	req := httptest.NewRequest(http.MethodPost, "/notebooks/missing/sources", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestChatRoundTrip(t *testing.T) {
	_, router := testEnv(t, "")
	nb := createNotebook(t, router, "chatty")

	body := []byte(`{"query": "what do the sources say?"}`)
	req := httptest.NewRequest(http.MethodPost, "/notebooks/"+nb.ID+"/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("ask status = %d, body = %s", w.Code, w.Body.String())
	}
	var answer models.ChatMessage
	json.Unmarshal(w.Body.Bytes(), &answer)
	if answer.FromUser || answer.Content == "" {
		t.Errorf("answer = %+v", answer)
	}

	req = httptest.NewRequest(http.MethodGet, "/notebooks/"+nb.ID+"/chat", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	var resp struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Messages) != 2 {
		t.Errorf("transcript len = %d, want 2", len(resp.Messages))
	}
}

func TestAskRequiresQuery(t *testing.T) {
	_, router := testEnv(t, "")
	nb := createNotebook(t, router, "chatty")

	req := httptest.NewRequest(http.MethodPost, "/notebooks/"+nb.ID+"/chat", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPut, "/settings", bytes.NewReader([]byte(`{"theme": "dark"}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/settings", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var s models.Settings
	json.Unmarshal(w.Body.Bytes(), &s)
	if s["theme"] != "dark" {
		t.Errorf("theme = %v", s["theme"])
	}
}

func TestAdminReset(t *testing.T) {
	_, router := testEnv(t, "")
	nb := createNotebook(t, router, "wiped")

	req := httptest.NewRequest(http.MethodPost, "/admin/reset", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("reset status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notebooks/"+nb.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after reset status = %d, want 404", w.Code)
	}
}

func TestAuthTokenMode(t *testing.T) {
	_, router := testEnv(t, "secret-token")

	req := httptest.NewRequest(http.MethodGet, "/notebooks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notebooks", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notebooks", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
