package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashrecipe/internal/config"
	"hashrecipe/internal/platform/localllm"
	"hashrecipe/internal/recipe"
	"hashrecipe/internal/retrieval"
	"hashrecipe/internal/session"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Addr:           ":0",
		CORSOrigins:    []string{"http://localhost:5173"},
		MaxUploadBytes: 1 << 20,
	}
}

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		ImageLimit:      3,
		FastImage:       config.ImageRandom,
		AccurateImage:   config.ImageRandom,
		Captioner:       config.CaptionerLocalLLM,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}
}

func imageRequest(t *testing.T) retrieval.Request {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 8))
	for x := 8; x < 16; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return retrieval.Request{
		Mode:      retrieval.ModeImage,
		Algorithm: retrieval.AlgorithmFast,
		Image:     &retrieval.ImageRef{Name: "q.png", Data: buf.Bytes()},
		Locale:    "en",
	}
}

func TestNewRouter_ServesSessionsAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := session.NewManager(recipe.Builtin(), retrieval.New(), session.WithQueryLatency(0))
	r := newRouter(testServerConfig(), mgr)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	var st session.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("mode", "TEXT"))
	require.NoError(t, writer.WriteField("q", "spicy"))
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+st.ID+"/query", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "hashrecipe_queries_total")
	assert.Contains(t, rr.Body.String(), "hashrecipe_active_sessions")
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newRouter(testServerConfig(), session.NewManager(recipe.Builtin(), retrieval.New()))

	req := httptest.NewRequest(http.MethodOptions, "/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildEngine_SimilarityRanksByFingerprint(t *testing.T) {
	cfg := testRetrievalConfig()
	cfg.FastImage = config.ImageSimilarity

	engine, cleanup, err := buildEngine(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	corpus := recipe.Builtin().Corpus("en")
	first, err := engine.Execute(context.Background(), imageRequest(t), corpus)
	require.NoError(t, err)
	second, err := engine.Execute(context.Background(), imageRequest(t), corpus)
	require.NoError(t, err)

	assert.Equal(t, 3, first.Count)
	assert.Equal(t, first.IDs(), second.IDs(), "similarity search is deterministic")
	assert.GreaterOrEqual(t, first.Hits[0].Score, first.Hits[1].Score)
}

func TestBuildEngine_MatchIngredients(t *testing.T) {
	noodle := retrieval.Request{Mode: retrieval.ModeText, Algorithm: retrieval.AlgorithmFast, Text: "noodle", Locale: "en"}
	corpus := recipe.Builtin().Corpus("en")

	engine, cleanup, err := buildEngine(context.Background(), testRetrievalConfig())
	require.NoError(t, err)
	defer cleanup()
	res, err := engine.Execute(context.Background(), noodle, corpus)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)

	cfg := testRetrievalConfig()
	cfg.MatchIngredients = true
	engine, cleanup2, err := buildEngine(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup2()
	res, err = engine.Execute(context.Background(), noodle, corpus)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, res.IDs())
}

func TestBuildEngine_CaptionerFailureIsGuarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testRetrievalConfig()
	cfg.AccurateImage = config.ImageCaption
	cfg.LocalLLMURL = srv.URL

	engine, cleanup, err := buildEngine(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	req := imageRequest(t)
	req.Algorithm = retrieval.AlgorithmAccurate
	for i := 0; i < 3; i++ {
		_, err = engine.Execute(context.Background(), req, recipe.Builtin().Corpus("en"))
		assert.ErrorIs(t, err, retrieval.ErrRetrievalFailure)
	}
	assert.ErrorContains(t, err, "circuit breaker is open")
}

func TestBuildDescriber_LocalLLM(t *testing.T) {
	cfg := testRetrievalConfig()
	d, cleanup, err := buildDescriber(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &localllm.Client{}, d)
}

func TestBuildCatalog_Builtin(t *testing.T) {
	c, err := buildCatalog(context.Background(), config.CorpusConfig{Source: config.CorpusBuiltin})
	require.NoError(t, err)
	assert.Len(t, c.Corpus("zh"), 6)
}
