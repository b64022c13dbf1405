package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imageAnnotation/internal/auth"
	"imageAnnotation/internal/config"
	"imageAnnotation/internal/logging"
	"imageAnnotation/internal/progress"
	"imageAnnotation/internal/testutil"
	"imageAnnotation/repository"
)

const testSecret = "http-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	ix     *testutil.Indexes
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvFor(t, testutil.SampleUsers())
}

func newTestEnvFor(t *testing.T, uf *config.UsersFile) *testEnv {
	t.Helper()
	ix := testutil.BuildIndexes(t, uf)
	iss, err := auth.NewIssuer(ix.Users, testSecret, time.Hour)
	require.NoError(t, err)

	cfg := &config.Config{
		HTTP: config.HTTPConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Auth: config.AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour},
	}
	d := Deps{
		Users:     ix.Users,
		Batches:   ix.Batches,
		Labels:    ix.Labels,
		Images:    ix.Images,
		Issuer:    iss,
		Progress:  progress.NewReporter(ix.Batches, ix.Labels, ix.Images),
		UsersFile: uf,
	}
	return &testEnv{router: NewRouter(cfg, d, logging.Discard()), ix: ix}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/login", map[string]string{"username": username, "password": password}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp loginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	s, _ := body["message"].(string)
	return s
}

type listResponse struct {
	Images []struct {
		Name    string `json:"name"`
		Labeled bool   `json:"labeled"`
	} `json:"images"`
	Labels map[string]struct {
		Text      string `json:"text"`
		UpdatedBy string `json:"updated_by"`
		UpdatedAt string `json:"updated_at"`
	} `json:"labels"`
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/login", map[string]string{"username": "user2", "password": "user2"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp loginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user2", resp.Username)
	assert.Equal(t, []string{"batch2"}, resp.Batches)
	assert.Equal(t, "annotator", resp.Role)
	assert.False(t, resp.IsAdmin)

	p, err := auth.ParseToken(resp.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user2", p.Username)
	assert.Equal(t, "annotator", p.Role)
	assert.False(t, p.IsAdmin)
}

func TestLogin_AdminHasEmptyBatches(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/login", map[string]string{"username": "admin", "password": "admin"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"batches":[]`)
	assert.Contains(t, w.Body.String(), `"is_admin":true`)
}

func TestLogin_Failures(t *testing.T) {
	e := newTestEnv(t)
	cases := []struct {
		name   string
		body   any
		status int
		msg    string
	}{
		{"wrong password", map[string]string{"username": "user2", "password": "x"}, http.StatusUnauthorized, "Invalid credentials"},
		{"unknown user", map[string]string{"username": "ghost", "password": "x"}, http.StatusNotFound, "User not found"},
		{"missing password", map[string]string{"username": "user2"}, http.StatusUnauthorized, "Could not verify"},
		{"malformed body", "{not json", http.StatusBadRequest, "Invalid request body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/login", tc.body, "")
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.msg, message(t, w))
		})
	}
}

func TestListSaveRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	e.ix.WriteImage(t, "batch2", "a.jpg")
	tok := e.login(t, "user2", "user2")

	w := e.do(t, http.MethodGet, "/api/images/batch2", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	var before listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &before))
	require.Len(t, before.Images, 1)
	assert.Equal(t, "a.jpg", before.Images[0].Name)
	assert.False(t, before.Images[0].Labeled)
	assert.Empty(t, before.Labels)
	assert.Contains(t, w.Body.String(), `"labels":{}`)

	w = e.do(t, http.MethodPost, "/api/labels/batch2", map[string]string{"image_name": "a.jpg", "label_text": "a cat"}, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Label saved successfully", message(t, w))

	w = e.do(t, http.MethodGet, "/api/images/batch2", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	var after listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	require.Len(t, after.Images, 1)
	assert.True(t, after.Images[0].Labeled)
	assert.Equal(t, "a cat", after.Labels["a.jpg"].Text)
	assert.Equal(t, "user2", after.Labels["a.jpg"].UpdatedBy)
	assert.NotEmpty(t, after.Labels["a.jpg"].UpdatedAt)
}

func TestEmptyBatchListsNoImages(t *testing.T) {
	e := newTestEnv(t)
	tok := e.login(t, "user1", "user1")
	w := e.do(t, http.MethodGet, "/api/images/batch1", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"images":[]`)
}

func TestBatchGuard(t *testing.T) {
	e := newTestEnv(t)
	user1 := e.login(t, "user1", "user1")
	admin := e.login(t, "admin", "admin")

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		token  string
		status int
		msg    string
	}{
		{"other users batch", http.MethodGet, "/api/images/batch2", nil, user1, http.StatusForbidden, "Unauthorized access to batch"},
		{"unknown batch", http.MethodGet, "/api/images/nope", nil, user1, http.StatusForbidden, "Unauthorized access to batch"},
		{"admin gets no bypass", http.MethodGet, "/api/images/batch1", nil, admin, http.StatusForbidden, "Unauthorized access to batch"},
		{"label other batch", http.MethodPost, "/api/labels/batch2", map[string]string{"image_name": "a.jpg", "label_text": "x"}, user1, http.StatusForbidden, "Unauthorized access to batch"},
		{"no token", http.MethodGet, "/api/images/batch1", nil, "", http.StatusUnauthorized, "Token is missing"},
		{"bad token", http.MethodGet, "/api/images/batch1", nil, "garbage", http.StatusUnauthorized, "Token is invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, tc.method, tc.path, tc.body, tc.token)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.msg, message(t, w))
		})
	}
}

func TestExpiredToken(t *testing.T) {
	e := newTestEnv(t)
	tok := testutil.GenerateJWTHS256(t, testSecret, "user1", "annotator", false, -time.Minute)
	w := e.do(t, http.MethodGet, "/api/images/batch1", nil, tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token is invalid", message(t, w))
}

func TestSaveLabel_Validation(t *testing.T) {
	e := newTestEnv(t)
	tok := e.login(t, "user1", "user1")

	w := e.do(t, http.MethodPost, "/api/labels/batch1", map[string]string{"image_name": "a.jpg"}, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields", message(t, w))

	w = e.do(t, http.MethodPost, "/api/labels/batch1", "{", tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSharedBatchBothUsersWrite(t *testing.T) {
	e := newTestEnv(t)
	for _, u := range []string{"user3", "user4"} {
		tok := e.login(t, u, u)
		w := e.do(t, http.MethodPost, "/api/labels/shared", map[string]string{"image_name": u + ".jpg", "label_text": "x"}, tok)
		require.Equal(t, http.StatusOK, w.Code, u)
	}
	labels, err := e.ix.Labels.Load(context.Background(), "shared")
	require.NoError(t, err)
	assert.Len(t, labels, 2)
	assert.Equal(t, "user4", labels["user4.jpg"].UpdatedBy)
}

func TestServeImage(t *testing.T) {
	e := newTestEnv(t)
	e.ix.WriteImage(t, "batch2", "a.jpg")
	e.ix.WriteImage(t, "batch1", "b.jpg")
	user2 := e.login(t, "user2", "user2")
	user1 := e.login(t, "user1", "user1")

	w := e.do(t, http.MethodGet, "/images/batch2/a.jpg?token="+user2, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "\x89PNG-a.jpg", w.Body.String())

	cases := []struct {
		name   string
		path   string
		status int
		msg    string
	}{
		{"missing token", "/images/batch2/a.jpg", http.StatusUnauthorized, "Token is missing"},
		{"invalid token", "/images/batch2/a.jpg?token=abc", http.StatusUnauthorized, "Token is invalid"},
		{"other users batch", "/images/batch2/a.jpg?token=" + user1, http.StatusForbidden, "Unauthorized access to image"},
		{"traversal", "/images/batch2/../batch1/b.jpg?token=" + user2, http.StatusForbidden, "Forbidden path"},
		{"missing file", "/images/batch2/zzz.jpg?token=" + user2, http.StatusNotFound, "Image not found"},
		{"empty filename", "/images/batch2/?token=" + user2, http.StatusNotFound, "Image not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, http.MethodGet, tc.path, nil, "")
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.msg, message(t, w))
		})
	}
}

func TestServeImage_NestedBatchFolder(t *testing.T) {
	e := newTestEnvFor(t, &config.UsersFile{Users: []config.UserEntry{
		{Username: "user1", Password: "user1", BatchID: "batch1", BatchFolder: "batch1"},
		{Username: "user2", Password: "user2", BatchID: "batch2", BatchFolder: "batch1/inner"},
	}})
	e.ix.WriteImage(t, "batch2", "secret.jpg")
	user1 := e.login(t, "user1", "user1")
	user2 := e.login(t, "user2", "user2")

	w := e.do(t, http.MethodGet, "/images/batch1/inner/secret.jpg?token="+user1, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden path", message(t, w))

	w = e.do(t, http.MethodGet, "/images/batch2/secret.jpg?token="+user2, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListImages_EmptyLabelsFileIsServerError(t *testing.T) {
	e := newTestEnv(t)
	b, err := e.ix.Batches.Get(context.Background(), "batch2")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(b.FolderPath, repository.LabelsFileName), nil, 0o644))

	w := e.do(t, http.MethodGet, "/api/images/batch2", nil, e.login(t, "user2", "user2"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Label storage is corrupt", message(t, w))
}

func TestAdminProgress(t *testing.T) {
	e := newTestEnv(t)
	e.ix.WriteImage(t, "batch1", "a.jpg")
	e.ix.WriteImage(t, "batch1", "b.jpg")
	user1 := e.login(t, "user1", "user1")
	w := e.do(t, http.MethodPost, "/api/labels/batch1", map[string]string{"image_name": "a.jpg", "label_text": "INVALID"}, user1)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/admin/progress", nil, user1)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := e.login(t, "admin", "admin")
	w = e.do(t, http.MethodGet, "/api/admin/progress", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Progress []struct {
			User                 string  `json:"user"`
			BatchID              string  `json:"batch_id"`
			TotalImages          int     `json:"total_images"`
			LabeledCount         int     `json:"labeled_count"`
			ValidLabeled         int     `json:"valid_labeled"`
			InvalidMarked        int     `json:"invalid_marked"`
			CompletionPercentage float64 `json:"completion_percentage"`
			LastUpdate           *string `json:"last_update"`
		} `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Progress, 4)
	first := body.Progress[0]
	assert.Equal(t, "user1", first.User)
	assert.Equal(t, "batch1", first.BatchID)
	assert.Equal(t, 2, first.TotalImages)
	assert.Equal(t, 1, first.InvalidMarked)
	assert.Equal(t, 0, first.ValidLabeled)
	assert.InDelta(t, 50.0, first.CompletionPercentage, 0.001)
	assert.NotNil(t, first.LastUpdate)
	assert.Nil(t, body.Progress[1].LastUpdate)
}

func TestAdminProgress_CorruptLabels(t *testing.T) {
	e := newTestEnv(t)
	b, err := e.ix.Batches.Get(context.Background(), "batch2")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(b.FolderPath, repository.LabelsFileName), []byte("{oops"), 0o644))

	w := e.do(t, http.MethodGet, "/api/admin/progress", nil, e.login(t, "admin", "admin"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Label storage is corrupt", message(t, w))
}

func TestConfigEndpoint(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/config", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/api/config", nil, e.login(t, "user1", "user1"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/api/config", nil, e.login(t, "admin", "admin"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"user1"`)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w = e.do(t, http.MethodGet, "/healthz", nil, "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodOptions, "/api/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(w.Body.String(), "ok"))
}
