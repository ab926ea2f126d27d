package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"hashrecipe/internal/history"
	"hashrecipe/internal/imaging"
	"hashrecipe/internal/locale"
	"hashrecipe/internal/logging"
	"hashrecipe/internal/recipe"
	"hashrecipe/internal/retrieval"
	"hashrecipe/internal/session"
)

const (
	// Detail views show this many fingerprint bits.
	detailFingerprintBits = 12
	// maxFormMemory matches gin's default multipart memory limit.
	maxFormMemory = 32 << 20
)

// SessionManager creates and looks up sessions.
type SessionManager interface {
	Create(opts ...session.Option) *session.Session
	Get(id string) (*session.Session, error)
	Delete(id string) error
}

// Handler handles HTTP requests.
type Handler struct {
	Sessions       SessionManager
	UploadDir      string
	MaxUploadBytes int64
}

// NewHandler creates a new Handler. An empty uploadDir disables keeping
// copies of query images.
func NewHandler(sessions SessionManager, uploadDir string, maxUploadBytes int64) *Handler {
	return &Handler{Sessions: sessions, UploadDir: uploadDir, MaxUploadBytes: maxUploadBytes}
}

// Register mounts the session routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/sessions", h.CreateSession)
	s := r.Group("/sessions/:id")
	s.GET("", h.GetSession)
	s.DELETE("", h.DeleteSession)
	s.POST("/query", h.Query)
	s.PUT("/draft", h.PutDraft)
	s.GET("/likes", h.GetLikes)
	s.POST("/likes/:recipe_id", h.ToggleLike)
	s.PUT("/locale", h.PutLocale)
	s.PUT("/view", h.PutView)
	s.GET("/recipes/:recipe_id", h.GetRecipe)
	s.GET("/history.csv", h.ExportHistory)
	s.POST("/login", h.Login)
	s.POST("/logout", h.Logout)
}

type createSessionRequest struct {
	Locale string `json:"locale"`
}

// CreateSession starts a session, optionally in a given locale.
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.String(http.StatusBadRequest, fmt.Sprintf("invalid body: %s", err.Error()))
			return
		}
	}

	var opts []session.Option
	if req.Locale != "" {
		loc, err := locale.Parse(req.Locale)
		if err != nil {
			writeError(c, err)
			return
		}
		opts = append(opts, session.WithLocale(loc))
	}

	s := h.Sessions.Create(opts...)
	logging.Info().Str("session", s.ID()).Str("locale", s.Locale().String()).Msg("session created")
	c.JSON(http.StatusCreated, s.Snapshot())
}

// GetSession returns the session state.
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// DeleteSession ends a session.
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.Sessions.Delete(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Query submits a query from form fields mode, algorithm, q and file. A
// form without a mode submits the current draft. With async=true the query
// completes in the background and the response is 202 with the session
// state.
func (h *Handler) Query(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}
	if err := parseForm(c); err != nil {
		writeError(c, err)
		return
	}

	draft := s.Draft()
	if c.PostForm("mode") != "" {
		var err error
		if draft, err = h.draftFromForm(c); err != nil {
			writeError(c, err)
			return
		}
		s.SetDraft(draft)
	}
	req := draft.Request(s.Locale())

	if c.PostForm("async") == "true" {
		done, err := s.SubmitQueryAsync(context.WithoutCancel(c.Request.Context()), req)
		if err != nil {
			writeError(c, err)
			return
		}
		go func(id string) {
			if out := <-done; out.Err != nil {
				logging.Warn().Err(out.Err).Str("session", id).Msg("background query failed")
			}
		}(s.ID())
		c.JSON(http.StatusAccepted, s.Snapshot())
		return
	}

	res, err := s.SubmitQuery(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) draftFromForm(c *gin.Context) (session.Draft, error) {
	mode, err := retrieval.ParseMode(c.PostForm("mode"))
	if err != nil {
		return session.Draft{}, err
	}
	algorithm := retrieval.AlgorithmFast
	if a := c.PostForm("algorithm"); a != "" {
		if algorithm, err = retrieval.ParseAlgorithm(a); err != nil {
			return session.Draft{}, err
		}
	}
	d := session.Draft{Mode: mode, Algorithm: algorithm, Text: c.PostForm("q")}
	if mode == retrieval.ModeImage {
		img, err := h.readImage(c)
		if err != nil {
			return session.Draft{}, err
		}
		d.Image = img
	}
	return d, nil
}

// parseForm reads the whole form up front. gin's PostForm drops parse
// errors, so a truncated body would otherwise look like a form without a
// mode.
func parseForm(c *gin.Context) error {
	err := c.Request.ParseMultipartForm(maxFormMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return fmt.Errorf("%w: parse form: %w", retrieval.ErrInvalidRequest, err)
}

// readImage reads the uploaded file. A missing file is left to request
// validation so it reports the same error as an empty text query.
func (h *Handler) readImage(c *gin.Context) (*retrieval.ImageRef, error) {
	file, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get form file: %w", retrieval.ErrInvalidRequest, err)
	}

	extension, ok := imaging.AllowedExtension(file.Filename)
	if !ok {
		return nil, fmt.Errorf("%w: only JPEG, JPG and PNG images are allowed", retrieval.ErrInvalidRequest)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer src.Close()

	imageData, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	if h.UploadDir != "" {
		path, err := imaging.SaveUpload(h.UploadDir, imageData, extension)
		if err != nil {
			logging.Warn().Err(err).Str("file", file.Filename).Msg("failed to keep uploaded image")
		} else {
			logging.Debug().Str("path", path).Msg("uploaded image saved")
		}
	}

	return &retrieval.ImageRef{Name: file.Filename, Data: imageData}, nil
}

type draftRequest struct {
	Mode      string `json:"mode"`
	Algorithm string `json:"algorithm"`
	Text      string `json:"text"`
}

// PutDraft replaces the text part of the query draft.
func (h *Handler) PutDraft(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid body: %s", err.Error()))
		return
	}

	d := s.Draft()
	if req.Mode != "" {
		mode, err := retrieval.ParseMode(req.Mode)
		if err != nil {
			writeError(c, err)
			return
		}
		d.Mode = mode
	}
	if req.Algorithm != "" {
		algorithm, err := retrieval.ParseAlgorithm(req.Algorithm)
		if err != nil {
			writeError(c, err)
			return
		}
		d.Algorithm = algorithm
	}
	d.Text = req.Text
	s.SetDraft(d)
	c.JSON(http.StatusOK, d)
}

// GetLikes lists the saved recipes in the active locale.
func (h *Handler) GetLikes(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.LikedRecipes())
}

// ToggleLike flips the liked state of a recipe.
func (h *Handler) ToggleLike(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	id := c.Param("recipe_id")
	c.JSON(http.StatusOK, gin.H{"recipe_id": id, "liked": s.ToggleLike(id)})
}

type localeRequest struct {
	Locale string `json:"locale" binding:"required"`
}

// PutLocale switches the session locale.
func (h *Handler) PutLocale(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req localeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid body: %s", err.Error()))
		return
	}
	loc, err := locale.Parse(req.Locale)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.SwitchLocale(loc); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

type viewRequest struct {
	View string `json:"view" binding:"required"`
}

// PutView navigates to another view.
func (h *Handler) PutView(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req viewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid body: %s", err.Error()))
		return
	}
	v, err := session.ParseView(req.View)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.Navigate(v); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": v})
}

type recipeDetail struct {
	recipe.Recipe
	Steps             []recipe.Step `json:"steps"`
	FingerprintPrefix string        `json:"fingerprint_prefix"`
	Liked             bool          `json:"liked"`
}

// GetRecipe returns one recipe in the active locale.
func (h *Handler) GetRecipe(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	r, err := s.Recipe(c.Param("recipe_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipeDetail{
		Recipe:            r,
		Steps:             r.Steps(),
		FingerprintPrefix: recipe.FingerprintPrefix(r.Fingerprint, detailFingerprintBits),
		Liked:             s.IsLiked(r.ID),
	})
}

// ExportHistory downloads the history ledger as CSV.
func (h *Handler) ExportHistory(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := history.WriteCSV(&buf, s.ExportHistory()); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", history.ExportFilename(s.Locale())))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Login authenticates the session's user.
func (h *Handler) Login(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var creds session.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid body: %s", err.Error()))
		return
	}
	user, err := s.Login(c.Request.Context(), creds)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout ends the user's login but keeps the session.
func (h *Handler) Logout(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Logout()
	c.Status(http.StatusNoContent)
}

func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.Sessions.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return s, true
}

// writeError maps core errors onto status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, retrieval.ErrInvalidRequest),
		errors.Is(err, locale.ErrUnsupported),
		errors.Is(err, session.ErrInvalidView):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, retrieval.ErrRetrievalFailure) && errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, retrieval.ErrRetrievalFailure):
		status = http.StatusBadGateway
	case errors.Is(err, session.ErrAuthFailure):
		status = http.StatusUnauthorized
	case errors.Is(err, session.ErrNotLoggedIn):
		status = http.StatusForbidden
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	}
	if status >= http.StatusInternalServerError {
		logging.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.String(status, err.Error())
}
