package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"prospectus-backend/internal/documents"
	"prospectus-backend/internal/shared/server/middleware"
)

type stubExtractor struct{}

func (stubExtractor) Extract(data []byte) (string, int, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", 0, errors.New("not a pdf")
	}
	return "our revenue was $96.7 million and $264.7 million", 3, nil
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Save(ctx context.Context, clientID, fileName string, r io.Reader) (string, int64, string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	key := clientID + "/" + fileName
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return key, int64(len(raw)), "application/pdf", nil
}

func (s *memStore) SaveWithKey(ctx context.Context, storageKey, contentType string, r io.Reader) (int64, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.data[storageKey] = raw
	s.mu.Unlock()
	return int64(len(raw)), nil
}

func (s *memStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	s.mu.Lock()
	raw, ok := s.data[storageKey]
	s.mu.Unlock()
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s *memStore) Delete(ctx context.Context, storageKey string) error {
	s.mu.Lock()
	delete(s.data, storageKey)
	s.mu.Unlock()
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *documents.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := &documents.Service{
		Store:     newMemStore(),
		Repo:      documents.NewMemoryRepo(),
		Extractor: stubExtractor{},
		Provider:  "local",
	}

	router := gin.New()
	rg := router.Group("/api/v1")
	rg.Use(middleware.Identity())
	documents.NewHandler(svc).RegisterRoutes(rg)
	return router, svc
}

func uploadRequest(t *testing.T, fileName, contentType string, data []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Client-Id", "client-1")
	return req
}

func TestDocumentsUploadAndCurrent(t *testing.T) {
	router, svc := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, uploadRequest(t, "s1.pdf", "application/pdf", []byte("%PDF-1.7 fake")))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		DocumentID string `json:"documentId"`
		FileName   string `json:"fileName"`
		PageCount  int    `json:"pageCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.DocumentID == "" {
		t.Fatal("expected documentId, got empty")
	}
	if created.PageCount != 3 {
		t.Fatalf("expected pageCount 3, got %d", created.PageCount)
	}

	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/documents/current", nil)
	reqGet.Header.Set("X-Client-Id", "client-1")
	respGet := httptest.NewRecorder()
	router.ServeHTTP(respGet, reqGet)
	if respGet.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", respGet.Code)
	}

	var current struct {
		FileName string `json:"fileName"`
	}
	if err := json.NewDecoder(respGet.Body).Decode(&current); err != nil {
		t.Fatalf("decode current response: %v", err)
	}
	if current.FileName != "s1.pdf" {
		t.Fatalf("expected fileName s1.pdf, got %s", current.FileName)
	}

	// Extracted text is stored at upload time and readable back.
	doc, text, err := svc.Text(context.Background(), "client-1", created.DocumentID)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if doc.ID != created.DocumentID {
		t.Fatalf("expected doc %s, got %s", created.DocumentID, doc.ID)
	}
	if text == "" {
		t.Fatal("expected extracted text, got empty")
	}
}

func TestDocumentsUploadRejectsNonPDF(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, uploadRequest(t, "notes.txt", "text/plain", []byte("plain text")))
	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status 415, got %d", resp.Code)
	}
}

func TestDocumentsUploadExtractionFailure(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, uploadRequest(t, "broken.pdf", "application/pdf", []byte("not pdf bytes")))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", resp.Code)
	}
}

func TestDocumentsResetDiscardsEverything(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, uploadRequest(t, "s1.pdf", "application/pdf", []byte("%PDF-1.7 fake")))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}

	reqDel := httptest.NewRequest(http.MethodDelete, "/api/v1/documents", nil)
	reqDel.Header.Set("X-Client-Id", "client-1")
	respDel := httptest.NewRecorder()
	router.ServeHTTP(respDel, reqDel)
	if respDel.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", respDel.Code)
	}

	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/documents/current", nil)
	reqGet.Header.Set("X-Client-Id", "client-1")
	respGet := httptest.NewRecorder()
	router.ServeHTTP(respGet, reqGet)
	if respGet.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after reset, got %d", respGet.Code)
	}
}

func TestDocumentsRequireClientHeader(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/current", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without client header, got %d", resp.Code)
	}
}
