package api_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashrecipe/internal/api"
	"hashrecipe/internal/recipe"
	"hashrecipe/internal/retrieval"
	"hashrecipe/internal/session"
)

func newRouter(t *testing.T, uploadDir string) (*gin.Engine, *session.Manager) {
	t.Helper()
	return newLimitedRouter(t, uploadDir, 1<<20)
}

func newLimitedRouter(t *testing.T, uploadDir string, maxUploadBytes int64) (*gin.Engine, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	mgr := session.NewManager(recipe.Builtin(), retrieval.New(),
		session.WithQueryLatency(0),
		session.WithAuthenticator(session.NewMockAuthenticator(0)),
	)
	api.NewHandler(mgr, uploadDir, maxUploadBytes).Register(r)
	return r, mgr
}

func do(r http.Handler, method, path, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func doJSON(r http.Handler, method, path string, v any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(v)
	return do(r, method, path, "application/json", bytes.NewBuffer(b))
}

func createSession(t *testing.T, r http.Handler) session.State {
	t.Helper()
	rr := do(r, http.MethodPost, "/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	var st session.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	return st
}

func form(t *testing.T, fields map[string]string, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 8; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCreateAndGetSession(t *testing.T) {
	r, mgr := newRouter(t, "")

	st := createSession(t, r)
	assert.Equal(t, "en", string(st.Locale))
	assert.Equal(t, 6, st.Results.Count)
	assert.Equal(t, 1, mgr.Len())

	rr := doJSON(r, http.MethodPost, "/sessions", map[string]string{"locale": "zh-CN"})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"locale":"zh"`)

	rr = doJSON(r, http.MethodPost, "/sessions", map[string]string{"locale": "fr"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(r, http.MethodGet, "/sessions/"+st.ID, "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(r, http.MethodGet, "/sessions/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(r, http.MethodDelete, "/sessions/"+st.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(r, http.MethodDelete, "/sessions/"+st.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTextQuery(t *testing.T) {
	r, _ := newRouter(t, "")
	st := createSession(t, r)

	body, ct := form(t, map[string]string{"mode": "text", "algorithm": "dsh", "q": "miso"}, "", nil)
	rr := do(r, http.MethodPost, "/sessions/"+st.ID+"/query", ct, body)
	require.Equal(t, http.StatusOK, rr.Code)

	var res retrieval.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, []string{"2"}, res.IDs())

	body, ct = form(t, map[string]string{"mode": "TEXT", "q": ""}, "", nil)
	rr = do(r, http.MethodPost, "/sessions/"+st.ID+"/query", ct, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body, ct = form(t, map[string]string{"mode": "TEXT", "algorithm": "BERT", "q": "x"}, "", nil)
	rr = do(r, http.MethodPost, "/sessions/"+st.ID+"/query", ct, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestImageQuery(t *testing.T) {
	dir := t.TempDir()
	r, _ := newRouter(t, dir)
	st := createSession(t, r)

	body, ct := form(t, map[string]string{"mode": "IMAGE", "algorithm": "CLIP"}, "dinner.png", pngBytes(t))
	rr := do(r, http.MethodPost, "/sessions/"+st.ID+"/query", ct, body)
	require.Equal(t, http.StatusOK, rr.Code)

	var res retrieval.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.LessOrEqual(t, res.Count, retrieval.DefaultImageLimit)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "upload kept on disk")

	rr = do(r, http.MethodGet, "/sessions/"+st.ID, "", nil)
	var got session.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.History, 1)
	assert.Equal(t, "dinner.png", got.History[0].Query)

	body, ct = form(t, map[string]string{"mode": "IMAGE"}, "dinner.gif", []byte("GIF89a"))
	rr = do(r, http.MethodPost, "/sessions/"+st.ID+"/query", ct, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body, ct = form(t, map[string]string{"mode": "IMAGE"}, "", nil)
	rr = do(r, http.MethodPost, "/sessions/"+st.ID+"/query", ct, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "image mode without a file")
}

func TestDraftSubmission(t *testing.T) {
	r, _ := newRouter(t, "")
	st := createSession(t, r)

	rr := doJSON(r, http.MethodPut, "/sessions/"+st.ID+"/draft", map[string]string{"mode": "TEXT", "algorithm": "CLIP", "text": "salmon"})
	require.Equal(t, http.StatusOK, rr.Code)

	body, ct := form(t, map[string]string{}, "", nil)
	rr = do(r, http.MethodPost, "/sessions/"+st.ID+"/query", ct, body)
	require.Equal(t, http.StatusOK, rr.Code)

	var res retrieval.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, []string{"3"}, res.IDs())
}

func TestQuery_OversizedUploadIsRejected(t *testing.T) {
	r, _ := newLimitedRouter(t, "", 1024)
	st := createSession(t, r)
	base := "/sessions/" + st.ID

	rr := doJSON(r, http.MethodPut, base+"/draft", map[string]string{"mode": "TEXT", "text": "salmon"})
	require.Equal(t, http.StatusOK, rr.Code)

	body, ct := form(t, map[string]string{"mode": "IMAGE"}, "big.png", bytes.Repeat([]byte{0x89}, 4096))
	rr = do(r, http.MethodPost, base+"/query", ct, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	after := sessionState(t, r, st.ID)
	assert.Empty(t, after.History, "the saved draft must not run")
	assert.Equal(t, 6, after.Results.Count)
	assert.Equal(t, "salmon", after.Draft.Text)
}

func TestQuery_MalformedFormIsRejected(t *testing.T) {
	r, _ := newRouter(t, "")
	st := createSession(t, r)

	rr := do(r, http.MethodPost, "/sessions/"+st.ID+"/query", "multipart/form-data; boundary=xyz", bytes.NewBufferString("not a multipart body"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, sessionState(t, r, st.ID).History)
}

func TestCreateSession_ChunkedBody(t *testing.T) {
	r, _ := newRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"locale":"zh"}`))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"locale":"zh"`)

	req = httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(""))
	req.ContentLength = -1
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, "empty chunked body uses defaults")
	assert.Contains(t, rr.Body.String(), `"locale":"en"`)
}

func sessionState(t *testing.T, r http.Handler, id string) session.State {
	t.Helper()
	rr := do(r, http.MethodGet, "/sessions/"+id, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var st session.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	return st
}

func TestLikesAndLocale(t *testing.T) {
	r, _ := newRouter(t, "")
	st := createSession(t, r)
	base := "/sessions/" + st.ID

	rr := do(r, http.MethodPost, base+"/likes/6", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"recipe_id":"6","liked":true}`, rr.Body.String())

	rr = doJSON(r, http.MethodPut, base+"/locale", map[string]string{"locale": "zh"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(r, http.MethodGet, base+"/likes", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var liked []recipe.Recipe
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &liked))
	require.Len(t, liked, 1)
	assert.Equal(t, "牛肉塔可", liked[0].Title)

	rr = do(r, http.MethodGet, base+"/recipes/6", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var detail map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	assert.Equal(t, true, detail["liked"])
	assert.Len(t, detail["fingerprint_prefix"], 12)

	rr = do(r, http.MethodGet, base+"/recipes/42", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(r, http.MethodPut, base+"/locale", map[string]string{"locale": "de"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginViewsLogout(t *testing.T) {
	r, _ := newRouter(t, "")
	st := createSession(t, r)
	base := "/sessions/" + st.ID

	rr := doJSON(r, http.MethodPut, base+"/view", map[string]string{"view": "PROFILE"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(r, http.MethodPost, base+"/login", session.Credentials{Email: "chef@hashrecipe.com"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(r, http.MethodPost, base+"/login", session.Credentials{Email: "chef@hashrecipe.com", Password: "pw"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Chef Gordon")

	rr = doJSON(r, http.MethodPut, base+"/view", map[string]string{"view": "history"})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(r, http.MethodPut, base+"/view", map[string]string{"view": "settings"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(r, http.MethodPost, base+"/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(r, http.MethodGet, base, "", nil)
	assert.Contains(t, rr.Body.String(), `"view":"HOME"`)
	assert.Contains(t, rr.Body.String(), `"login_state":"LOGGED_OUT"`)
}

func TestExportHistory(t *testing.T) {
	r, _ := newRouter(t, "")
	st := createSession(t, r)
	base := "/sessions/" + st.ID

	for _, q := range []string{"egg", "bowl, berry"} {
		body, ct := form(t, map[string]string{"mode": "TEXT", "q": q}, "", nil)
		rr := do(r, http.MethodPost, base+"/query", ct, body)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := do(r, http.MethodGet, base+"/history.csv", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "search_history_en.csv")

	rows, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Query Input", rows[0][2])
	assert.Equal(t, "bowl, berry", rows[1][2], "newest first and quoted")
	assert.Equal(t, "egg", rows[2][2])
}

func TestAsyncQuery(t *testing.T) {
	r, mgr := newRouter(t, "")
	st := createSession(t, r)

	body, ct := form(t, map[string]string{"mode": "TEXT", "q": "pizza", "async": "true"}, "", nil)
	rr := do(r, http.MethodPost, "/sessions/"+st.ID+"/query", ct, body)
	require.Equal(t, http.StatusAccepted, rr.Code)

	s, err := mgr.Get(st.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(s.Snapshot().History) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"4"}, s.Results().IDs())
}
