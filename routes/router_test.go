package routes

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutena/fotomutena/config"
	"github.com/mutena/fotomutena/media"
	"github.com/mutena/fotomutena/models"
	"github.com/mutena/fotomutena/store"
	"github.com/mutena/fotomutena/utils"
)

const testPassword = "mutena-admin"

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	dataDir string
	token   string
}

func newTestServer(t *testing.T, readOnly bool, maxUpload int64) *testServer {
	t.Helper()
	root := t.TempDir()
	cfg := config.AppConfig{
		JWTSecret:          "test-secret",
		TokenTTLHours:      1,
		LoginRatePerMinute: 100,
		GinMode:            "test",
		DataDir:            filepath.Join(root, "data"),
		UploadsDir:         filepath.Join(root, "uploads"),
		ReadOnly:           readOnly,
		AllowedOrigins:     []string{"*"},
	}
	require.NoError(t, os.MkdirAll(cfg.DataDir, 0o755))

	backend, err := store.NewFileBackend(cfg.DataDir, readOnly)
	require.NoError(t, err)
	host, err := media.NewLocalHost(cfg.UploadsDir, store.UploadsPrefix)
	require.NoError(t, err)
	hash, err := utils.ResolveAdminHash("", testPassword)
	require.NoError(t, err)

	r := SetupRouter(Deps{
		Config:    cfg,
		Stores:    store.New(backend),
		Ingestor:  media.NewIngestor(host, maxUpload),
		AdminHash: hash,
		Blacklist: utils.NewTokenBlacklist(nil),
	})
	ts := &testServer{t: t, router: r, dataDir: cfg.DataDir}
	ts.token = ts.login(testPassword)
	return ts
}

func (s *testServer) do(method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if _, raw := body.([]byte); !raw && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) admin(method, path string, body any, extra ...string) *httptest.ResponseRecorder {
	header := map[string]string{"Authorization": "Bearer " + s.token}
	for i := 0; i+1 < len(extra); i += 2 {
		header[extra[i]] = extra[i+1]
	}
	return s.do(method, path, body, header)
}

func (s *testServer) login(password string) string {
	w := s.do(http.MethodPost, "/api/auth/login", gin.H{"password": password}, nil)
	if w.Code != http.StatusOK {
		return ""
	}
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func (s *testServer) list(name string) []models.Record {
	s.t.Helper()
	w := s.do(http.MethodGet, "/api/"+name, nil, nil)
	require.Equal(s.t, http.StatusOK, w.Code)
	var list []models.Record
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &list))
	return list
}

type mutation struct {
	Success   bool            `json:"success"`
	Photos    []models.Record `json:"photos"`
	Designs   []models.Record `json:"designs"`
	Item      models.Record   `json:"item"`
	Persisted bool            `json:"persisted"`
	Code      int             `json:"code"`
	Error     string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) mutation {
	t.Helper()
	var m mutation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func multipartBody(t *testing.T, fields map[string]string, filename string, data []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func ids(list []models.Record) []string {
	out := make([]string, len(list))
	for i, r := range list {
		out[i] = r.ID
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false, 0)
	w := s.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), `"store":"file"`)
}

func TestPhotosServeSeedUntilFirstWrite(t *testing.T) {
	s := newTestServer(t, false, 0)
	w := s.do(http.MethodGet, "/api/photos", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("ETag"))
	assert.Empty(t, w.Header().Get("X-Collection-Fallback"))
	assert.Len(t, s.list("photos"), 40)
	assert.Empty(t, s.list("designs"))
}

func TestMutationsRequireToken(t *testing.T) {
	s := newTestServer(t, false, 0)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/photos", gin.H{"url": "https://x/a.jpg"}, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodDelete, "/api/photos?id=1", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPatch, "/api/photos", gin.H{"photos": []any{}}, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/settings", gin.H{}, nil).Code)
	assert.Len(t, s.list("photos"), 40)
}

func TestLoginLogout(t *testing.T) {
	s := newTestServer(t, false, 0)
	require.NotEmpty(t, s.token)
	assert.Empty(t, s.login("wrong"))

	assert.Equal(t, http.StatusOK, s.admin(http.MethodGet, "/api/auth/me", nil).Code)
	assert.Equal(t, http.StatusOK, s.admin(http.MethodPost, "/api/auth/logout", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.admin(http.MethodGet, "/api/auth/me", nil).Code)
}

func TestLoginRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	s := newTestServer(t, false, 0)

	limited := 0
	for i := 0; i < 60; i++ {
		w := s.do(http.MethodPost, "/api/auth/login", gin.H{"password": "guess"},
			map[string]string{"X-Forwarded-For": fmt.Sprintf("8.8.8.%d", i+1)})
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Positive(t, limited)
}

func TestScenarioFirstURLRecord(t *testing.T) {
	s := newTestServer(t, false, 0)
	require.Equal(t, http.StatusOK, s.admin(http.MethodPatch, "/api/photos", gin.H{"photos": []any{}}).Code)

	w := s.admin(http.MethodPost, "/api/photos", gin.H{"url": "https://x/img.jpg", "title": "A", "category": "Cat"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decode(t, w)
	assert.True(t, m.Success)
	assert.True(t, m.Persisted)
	require.Len(t, m.Photos, 1)

	rec := m.Photos[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "https://x/img.jpg", rec.URL)
	assert.Equal(t, "A", rec.Title)
	assert.Equal(t, "A", rec.Alt)
	assert.Equal(t, "Cat", rec.Category)
	require.NotNil(t, rec.Specs)
	assert.Equal(t, "Bulut Yükleme", rec.Specs.ISO)

	assert.Equal(t, m.Photos, s.list("photos"))
	assert.Equal(t, w.Header().Get("ETag"), s.do(http.MethodGet, "/api/photos", nil, nil).Header().Get("ETag"))
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	s := newTestServer(t, false, 0)

	w := s.admin(http.MethodPost, "/api/designs", gin.H{"url": "https://x/d.png"})
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode(t, w).Designs[0]
	assert.Equal(t, "Tasarım", rec.Category)
	assert.Equal(t, 800, rec.Width)
	assert.Equal(t, 600, rec.Height)
	require.NotNil(t, rec.Specs)
	assert.Equal(t, "Studio Mutena", rec.Specs.Tool)

	before := s.list("designs")
	for _, body := range []any{gin.H{}, gin.H{"title": "no url"}, gin.H{"url": "ftp://x/y.jpg"}, []byte("not json")} {
		w := s.admin(http.MethodPost, "/api/designs", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		assert.False(t, decode(t, w).Success)
	}
	form, ct := multipartBody(t, map[string]string{"title": "nothing attached"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, s.admin(http.MethodPost, "/api/designs", form, "Content-Type", ct).Code)
	assert.Equal(t, before, s.list("designs"))
}

func TestMultipartUploadIsServed(t *testing.T) {
	s := newTestServer(t, false, 0)
	form, ct := multipartBody(t, map[string]string{"title": "<i>Işık</i>", "category": "Mimari"}, "light.png", testPNG(t, 40, 20))

	w := s.admin(http.MethodPost, "/api/photos", form, "Content-Type", ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decode(t, w)
	require.Len(t, m.Photos, 41)
	rec := m.Photos[0]
	assert.Equal(t, rec, m.Item)
	assert.Equal(t, "Işık", rec.Title)
	assert.Equal(t, "Mimari", rec.Category)
	assert.Equal(t, 40, rec.Width)
	assert.Equal(t, 20, rec.Height)
	require.NotNil(t, rec.AspectRatio)
	assert.Equal(t, 2.0, *rec.AspectRatio)
	require.True(t, strings.HasPrefix(rec.URL, store.UploadsPrefix))
	assert.NotContains(t, ids(m.Photos[1:]), rec.ID)

	got := s.do(http.MethodGet, rec.URL, nil, nil)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, "image/png", got.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000, immutable", got.Header().Get("Cache-Control"))
	assert.Equal(t, testPNG(t, 40, 20), got.Body.Bytes())
}

func TestUploadRejections(t *testing.T) {
	s := newTestServer(t, false, 2048)

	form, ct := multipartBody(t, nil, "notes.txt", []byte("plain text is not an image"))
	w := s.admin(http.MethodPost, "/api/photos", form, "Content-Type", ct)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	form, ct = multipartBody(t, nil, "big.png", bytes.Repeat([]byte{0x89}, 4096))
	w = s.admin(http.MethodPost, "/api/photos", form, "Content-Type", ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	form, ct = multipartBody(t, nil, "empty.png", []byte{})
	w = s.admin(http.MethodPost, "/api/photos", form, "Content-Type", ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Len(t, s.list("photos"), 40)
}

func TestInlineDataURLGoesThroughIngestion(t *testing.T) {
	s := newTestServer(t, false, 2048)
	inline := func(data []byte) string { return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data) }

	w := s.admin(http.MethodPost, "/api/photos", gin.H{"url": inline(testPNG(t, 40, 20)), "title": "inline"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	item := decode(t, w).Item
	assert.True(t, strings.HasPrefix(item.URL, store.UploadsPrefix), item.URL)
	assert.Equal(t, 40, item.Width)
	assert.Equal(t, 20, item.Height)

	before := s.list("photos")
	cases := []struct {
		name   string
		url    string
		status int
	}{
		{"not an image", inline([]byte("plain text is not an image")), http.StatusUnsupportedMediaType},
		{"over the upload ceiling", inline(bytes.Repeat([]byte{0x89}, 4096)), http.StatusRequestEntityTooLarge},
		{"not base64", "data:image/png,raw-bytes", http.StatusBadRequest},
		{"body over the cap", "data:image/png;base64," + strings.Repeat("A", 2<<20), http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.admin(http.MethodPost, "/api/photos", gin.H{"url": tc.url})
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, before, s.list("photos"))
}

func TestDeleteIsIdempotentAndKeepsOrder(t *testing.T) {
	s := newTestServer(t, false, 0)
	before := s.list("photos")
	target := before[3].ID

	first := s.admin(http.MethodDelete, "/api/photos?id="+target, nil)
	require.Equal(t, http.StatusOK, first.Code)
	once := decode(t, first).Photos

	want := append(append([]models.Record{}, before[:3]...), before[4:]...)
	assert.Equal(t, want, once)

	second := s.admin(http.MethodDelete, "/api/photos?id="+target, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, once, decode(t, second).Photos)
	assert.Equal(t, once, s.list("photos"))

	assert.Equal(t, http.StatusBadRequest, s.admin(http.MethodDelete, "/api/photos", nil).Code)
}

func TestPatchReordersVerbatim(t *testing.T) {
	s := newTestServer(t, false, 0)
	list := s.list("photos")[:5]
	perm := []models.Record{list[4], list[2], list[0], list[3], list[1]}

	w := s.admin(http.MethodPatch, "/api/photos", gin.H{"photos": perm})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, perm, decode(t, w).Photos)
	assert.Equal(t, perm, s.list("photos"))

	dup := []models.Record{list[0], list[0]}
	assert.Equal(t, http.StatusBadRequest, s.admin(http.MethodPatch, "/api/photos", gin.H{"photos": dup}).Code)
	assert.Equal(t, http.StatusBadRequest, s.admin(http.MethodPatch, "/api/photos", gin.H{"designs": perm}).Code)
	assert.Equal(t, http.StatusBadRequest, s.admin(http.MethodPatch, "/api/photos", gin.H{"photos": "nope"}).Code)
	assert.Equal(t, perm, s.list("photos"))
}

func TestStaleIfMatchConflicts(t *testing.T) {
	s := newTestServer(t, false, 0)
	stale := s.do(http.MethodGet, "/api/designs", nil, nil).Header().Get("ETag")

	w := s.admin(http.MethodPost, "/api/designs", gin.H{"url": "https://x/1.png"}, "If-Match", stale)
	require.Equal(t, http.StatusOK, w.Code)
	fresh := w.Header().Get("ETag")

	w = s.admin(http.MethodPost, "/api/designs", gin.H{"url": "https://x/2.png"}, "If-Match", stale)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, fresh, w.Header().Get("ETag"))
	assert.Len(t, s.list("designs"), 1)
}

func TestReadOnlyRuntimeReportsUnpersisted(t *testing.T) {
	s := newTestServer(t, true, 0)

	w := s.admin(http.MethodPost, "/api/designs", gin.H{"url": "https://x/1.png", "title": "T"})
	require.Equal(t, http.StatusOK, w.Code)
	m := decode(t, w)
	assert.False(t, m.Persisted)
	assert.Len(t, m.Designs, 1)
	assert.Empty(t, s.list("designs"))
}

func TestUnreadableStore(t *testing.T) {
	s := newTestServer(t, false, 0)
	path := filepath.Join(s.dataDir, "photos.json")
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0o644))

	w := s.do(http.MethodGet, "/api/photos", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get("X-Collection-Fallback"))

	w = s.admin(http.MethodPost, "/api/photos", gin.H{"url": "https://x/a.jpg"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{corrupt", string(raw))
}

func TestSettings(t *testing.T) {
	s := newTestServer(t, false, 0)

	w := s.do(http.MethodGet, "/api/settings", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.DefaultSettings(), got)

	update := models.Settings{Contact: models.Contact{Email: "hello@mutena.com", Instagram: "<b>@mutena</b>"}}
	w = s.admin(http.MethodPost, "/api/settings", update)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/settings", nil, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "hello@mutena.com", got.Contact.Email)
	assert.Equal(t, "@mutena", got.Contact.Instagram)
	assert.Empty(t, got.Contact.Phone)
}

func TestUploadsRejectTraversal(t *testing.T) {
	s := newTestServer(t, false, 0)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/uploads/missing.jpg", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/uploads/..%2Fdata%2Fphotos.json", nil, nil).Code)
}

func TestStats(t *testing.T) {
	s := newTestServer(t, false, 0)
	w := s.do(http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Photos struct {
			Total      int `json:"total"`
			Categories []struct {
				Category string `json:"category"`
				Count    int    `json:"count"`
			} `json:"categories"`
		} `json:"photos"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 40, out.Photos.Total)
	require.Len(t, out.Photos.Categories, 5)
	assert.Equal(t, 8, out.Photos.Categories[0].Count)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, false, 0)
	s.do(http.MethodGet, "/api/photos", nil, nil)
	w := s.do(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fotomutena_http_requests_total")
}
