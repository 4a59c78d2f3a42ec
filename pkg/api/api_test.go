package api_test

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/casevault/pkg/api"
	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/internal/storage"
	"github.com/yeisme/casevault/pkg/internal/storage/blob"
	"github.com/yeisme/casevault/pkg/internal/storage/db"
	"github.com/yeisme/casevault/pkg/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type upload struct {
	name        string
	contentType string
	data        []byte
}

type server struct {
	engine *gin.Engine
	blobs  *blob.MemoryStore
}

func newServer(t *testing.T, mutate ...func(*configs.AppConfig)) *server {
	t.Helper()

	cfg := configs.Default()
	for _, fn := range mutate {
		fn(&cfg)
	}

	configs.SetConfig(cfg)

	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "api.db") + "?_pragma=busy_timeout(5000)"

	client, err := db.Open(ctx, sqlite.Open(dsn), 1, 1)
	require.NoError(t, err)
	require.NoError(t, client.Migrate(ctx, model.All()...))

	t.Cleanup(func() { _ = client.Close() })

	store := blob.NewMemory()
	mgr := &storage.Manager{DB: client, Blob: store}

	return &server{engine: api.NewEngine(configs.GetConfig(), mgr, nil), blobs: store}
}

func (s *server) do(t *testing.T, role string, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	req.Header.Set("X-Auth-Request-Email", "worker@example.org")
	if role != "" {
		req.Header.Set("X-Role", role)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	return w
}

func (s *server) jsonRequest(t *testing.T, role, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte

	if body != nil {
		var err error
		payload, err = sonic.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	return s.do(t, role, req)
}

func (s *server) createCase(t *testing.T, number string) uint64 {
	t.Helper()

	w := s.jsonRequest(t, "focal_person", http.MethodPost, "/api/v1/cases", types.CreateCaseRequest{
		CaseNumber: number,
		Title:      "case " + number,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var c model.Case
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &c))
	assert.Equal(t, "worker@example.org", c.CreatedBy)

	return c.ID
}

func (s *server) upload(t *testing.T, path string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="evidence_files[]"; filename=%q`, f.name))
		h.Set("Content-Type", f.contentType)

		part, err := mw.CreatePart(h)
		require.NoError(t, err)

		_, err = part.Write(f.data)
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return s.do(t, "focal_person", req)
}

func attachmentsPath(kind model.OwnerKind, id uint64) string {
	return fmt.Sprintf("/api/v1/%s/%d/attachments", kind, id)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &v), w.Body.String())

	return v
}

func TestAttachmentLifecycle(t *testing.T) {
	s := newServer(t)
	id := s.createCase(t, "CV-100")
	path := attachmentsPath(model.KindCase, id)

	w := s.upload(t, path,
		upload{name: "report.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4 report")},
		upload{name: "photo.jpg", contentType: "image/jpeg", data: bytes.Repeat([]byte{0xff}, 2048)},
	)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	up := decode[types.UploadAttachmentsResponse](t, w)
	assert.Equal(t, "Evidence files uploaded successfully.", up.Message)
	assert.Equal(t, 2, up.TotalFiles)
	require.Len(t, up.Uploaded, 2)
	assert.Equal(t, "report.pdf", up.Uploaded[0].OriginalName)
	assert.Equal(t, 2, s.blobs.Len())

	list := s.do(t, "focal_person", httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, list.Code)
	assert.Equal(t, "private, no-cache", list.Header().Get("Cache-Control"))

	body := decode[struct {
		CaseID uint64                  `json:"case_id"`
		Files  []model.AttachmentEntry `json:"files"`
	}](t, list)
	assert.Equal(t, id, body.CaseID)
	require.Len(t, body.Files, 2)
	assert.Equal(t, up.Uploaded[1].Filename, body.Files[1].Filename)

	dl := s.do(t, "focal_person", httptest.NewRequest(http.MethodGet, path+"/download?filename="+up.Uploaded[0].Filename, nil))
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "application/pdf", dl.Header().Get("Content-Type"))
	assert.Contains(t, dl.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, dl.Header().Get("Content-Disposition"), "report.pdf")
	assert.Equal(t, "nosniff", dl.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "%PDF-1.4 report", dl.Body.String())

	rm := s.jsonRequest(t, "focal_person", http.MethodDelete, path, types.RemoveAttachmentRequest{Filename: up.Uploaded[0].Filename})
	require.Equal(t, http.StatusOK, rm.Code, rm.Body.String())

	removed := decode[types.RemoveAttachmentResponse](t, rm)
	assert.Equal(t, "Evidence file removed successfully.", removed.Message)
	assert.Equal(t, 1, removed.RemainingFiles)

	// 重复移除同样成功
	again := s.jsonRequest(t, "focal_person", http.MethodDelete, path, types.RemoveAttachmentRequest{Filename: up.Uploaded[0].Filename})
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, 1, decode[types.RemoveAttachmentResponse](t, again).RemainingFiles)

	gone := s.do(t, "focal_person", httptest.NewRequest(http.MethodGet, path+"/download?filename="+up.Uploaded[0].Filename, nil))
	assert.Equal(t, http.StatusNotFound, gone.Code)
}

func TestPostJSONRemovesAttachment(t *testing.T) {
	s := newServer(t)
	id := s.createCase(t, "CV-101")
	path := attachmentsPath(model.KindCase, id)

	w := s.upload(t, path, upload{name: "note.txt", contentType: "text/plain", data: []byte("hello")})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	name := decode[types.UploadAttachmentsResponse](t, w).Uploaded[0].Filename

	rm := s.jsonRequest(t, "focal_person", http.MethodPost, path, map[string]string{"filename": name})
	require.Equal(t, http.StatusOK, rm.Code, rm.Body.String())
	assert.Equal(t, 0, decode[types.RemoveAttachmentResponse](t, rm).RemainingFiles)
	assert.Equal(t, 0, s.blobs.Len())
}

func TestListETag(t *testing.T) {
	s := newServer(t)
	id := s.createCase(t, "CV-102")
	path := attachmentsPath(model.KindCase, id)

	first := s.do(t, "focal_person", httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, first.Code)

	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("If-None-Match", etag)

	cached := s.do(t, "focal_person", req)
	assert.Equal(t, http.StatusNotModified, cached.Code)
	assert.Empty(t, cached.Body.String())

	w := s.upload(t, path, upload{name: "a.txt", contentType: "text/plain", data: []byte("a")})
	require.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("If-None-Match", etag)

	changed := s.do(t, "focal_person", req)
	assert.Equal(t, http.StatusOK, changed.Code)
	assert.NotEqual(t, etag, changed.Header().Get("ETag"))
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	s := newServer(t, func(c *configs.AppConfig) { c.Attachment.MaxFileSize = "1KiB" })
	id := s.createCase(t, "CV-103")
	path := attachmentsPath(model.KindCase, id)

	w := s.upload(t, path,
		upload{name: "small.txt", contentType: "text/plain", data: []byte("ok")},
		upload{name: "big.bin", contentType: "application/octet-stream", data: bytes.Repeat([]byte{'x'}, 4096)},
	)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())

	body := decode[types.ErrorResponse](t, w)
	assert.Contains(t, body.Errors, "evidence_files.1")
	assert.Equal(t, 0, s.blobs.Len())
}

func TestValidationErrors(t *testing.T) {
	s := newServer(t)
	id := s.createCase(t, "CV-104")
	path := attachmentsPath(model.KindCase, id)

	rm := s.jsonRequest(t, "focal_person", http.MethodDelete, path, map[string]string{})
	require.Equal(t, http.StatusUnprocessableEntity, rm.Code)
	assert.Equal(t, "The filename field is required.", decode[types.ErrorResponse](t, rm).Message)

	dl := s.do(t, "focal_person", httptest.NewRequest(http.MethodGet, path+"/download", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, dl.Code)

	empty := s.upload(t, path)
	assert.Equal(t, http.StatusUnprocessableEntity, empty.Code)

	bad := s.jsonRequest(t, "focal_person", http.MethodPost, "/api/v1/cases", map[string]string{"title": "x"})
	require.Equal(t, http.StatusUnprocessableEntity, bad.Code)
	assert.Equal(t, "The case_number field is required.", decode[types.ErrorResponse](t, bad).Message)
}

func TestOwnerNotFound(t *testing.T) {
	s := newServer(t)

	for _, path := range []string{
		attachmentsPath(model.KindCase, 999),
		"/api/v1/cases/abc/attachments",
		attachmentsPath(model.KindIncident, 7),
	} {
		w := s.do(t, "focal_person", httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}

	w := s.do(t, "focal_person", httptest.NewRequest(http.MethodGet, "/api/v1/incidents/abc/attachments", nil))
	assert.Equal(t, "Incident not found", decode[types.ErrorResponse](t, w).Message)
}

func TestRoleEnforcement(t *testing.T) {
	s := newServer(t)
	id := s.createCase(t, "CV-105")

	none := s.do(t, "", httptest.NewRequest(http.MethodGet, attachmentsPath(model.KindCase, id), nil))
	assert.Equal(t, http.StatusForbidden, none.Code)

	focal := s.do(t, "focal_person", httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/cases/%d", id), nil))
	assert.Equal(t, http.StatusForbidden, focal.Code)

	sweep := s.do(t, "director", httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/sweep", nil))
	assert.Equal(t, http.StatusForbidden, sweep.Code)

	req := httptest.NewRequest(http.MethodGet, attachmentsPath(model.KindCase, id), nil)
	req.Header.Set("X-Role", "director")

	anon := httptest.NewRecorder()
	s.engine.ServeHTTP(anon, req)
	assert.Equal(t, http.StatusUnauthorized, anon.Code)
}

func TestDeleteCasePurgesEvidence(t *testing.T) {
	s := newServer(t)
	id := s.createCase(t, "CV-106")

	inc := s.jsonRequest(t, "focal_person", http.MethodPost, fmt.Sprintf("/api/v1/cases/%d/incidents", id), types.CreateIncidentRequest{Title: "visit"})
	require.Equal(t, http.StatusCreated, inc.Code, inc.Body.String())

	incident := decode[model.Incident](t, inc)
	assert.Equal(t, id, incident.CaseID)

	require.Equal(t, http.StatusCreated, s.upload(t, attachmentsPath(model.KindCase, id),
		upload{name: "a.txt", contentType: "text/plain", data: []byte("a")}).Code)
	require.Equal(t, http.StatusCreated, s.upload(t, attachmentsPath(model.KindIncident, incident.ID),
		upload{name: "b.txt", contentType: "text/plain", data: []byte("b")}).Code)
	require.Equal(t, 2, s.blobs.Len())

	got := s.do(t, "focal_person", httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/cases/%d", id), nil))
	require.Equal(t, http.StatusOK, got.Code)

	c := decode[model.Case](t, got)
	require.Len(t, c.Incidents, 1)
	assert.Len(t, c.EvidenceFiles, 1)

	del := s.do(t, "director", httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/cases/%d", id), nil))
	require.Equal(t, http.StatusNoContent, del.Code)
	assert.Equal(t, 0, s.blobs.Len())

	missing := s.do(t, "focal_person", httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/incidents/%d", incident.ID), nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestDownloadNonASCIIName(t *testing.T) {
	s := newServer(t)
	id := s.createCase(t, "CV-107")
	path := attachmentsPath(model.KindCase, id)

	w := s.upload(t, path, upload{name: "证据 照片.png", contentType: "image/png", data: []byte("\x89PNG\r\n\x1a\n")})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	entry := decode[types.UploadAttachmentsResponse](t, w).Uploaded[0]

	dl := s.do(t, "focal_person", httptest.NewRequest(http.MethodGet, path+"/download?filename="+entry.Filename, nil))
	require.Equal(t, http.StatusOK, dl.Code)
	assert.True(t, strings.HasPrefix(dl.Header().Get("Content-Disposition"), "attachment; filename*=utf-8''"))
}
