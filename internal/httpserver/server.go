package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/flashdeck/internal/cardsource"
	"github.com/tinytelemetry/flashdeck/internal/model"
)

// maxUploadBytes caps an imported card file.
const maxUploadBytes = 8 << 20

// Server exposes the study session over HTTP.
type Server struct {
	addr      string
	api       model.StudyAPI
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, api model.StudyAPI) *Server {
	if addr == "" {
		addr = "127.0.0.1:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		api:       api,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = maxUploadBytes

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/state", s.handleState)
	api.POST("/open", s.handleOpen)
	api.POST("/close", s.handleClose)
	api.POST("/judgments", s.handleJudge)
	api.POST("/previous", s.handlePrevious)

	api.POST("/folders", s.handleCreateFolder)
	api.DELETE("/folders/:name", s.handleDeleteFolder)

	api.POST("/decks/import", s.handleImport)
	api.POST("/decks/:id/move", s.handleMoveDeck)
	api.POST("/decks/:id/reset", s.handleReset)
	api.DELETE("/decks/:id", s.handleDeleteDeck)
	api.GET("/decks/:id/judgments", s.handleDailyJudgments)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.addr = listener.Addr().String()
	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Addr returns the listen address, resolved once Start has bound it.
func (s *Server) Addr() string {
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// respond writes the study state, or a 500 when the session failed.
func respond(c *gin.Context, st model.StudyState, err error) {
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func deckID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deck id must be an integer"})
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealth(c *gin.Context) {
	st, err := s.api.State()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read study state"})
		return
	}
	decks := 0
	for _, list := range st.Table.Folders {
		decks += len(list)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.startTime).String(),
		"folders":    len(st.Table.Folders),
		"decks":      decks,
		"last_error": st.LastError,
	})
}

func (s *Server) handleState(c *gin.Context) {
	st, err := s.api.State()
	respond(c, st, err)
}

func (s *Server) handleOpen(c *gin.Context) {
	var req struct {
		Folder model.FolderKey `json:"folder"`
		DeckID int64           `json:"deck_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing deck_id"})
		return
	}
	st, err := s.api.Open(req.Folder, req.DeckID)
	respond(c, st, err)
}

func (s *Server) handleClose(c *gin.Context) {
	st, err := s.api.CloseDeck()
	respond(c, st, err)
}

func (s *Server) handleJudge(c *gin.Context) {
	var req struct {
		Direction model.Direction `json:"direction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Direction == model.DirectionNone {
		c.JSON(http.StatusBadRequest, gin.H{"error": `direction must be "knew" or "didnt_know"`})
		return
	}
	st, err := s.api.Judge(req.Direction)
	respond(c, st, err)
}

func (s *Server) handlePrevious(c *gin.Context) {
	st, err := s.api.Previous()
	respond(c, st, err)
}

func (s *Server) handleCreateFolder(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing name"})
		return
	}
	st, err := s.api.CreateFolder(req.Name)
	respond(c, st, err)
}

func (s *Server) handleDeleteFolder(c *gin.Context) {
	st, err := s.api.DeleteFolder(c.Param("name"))
	respond(c, st, err)
}

// handleImport accepts either a multipart upload in field "file" (CSV, TSV
// or YAML by extension) or a JSON body {"name": ..., "cards": [...]}.
func (s *Server) handleImport(c *gin.Context) {
	var (
		name  string
		cards []model.CardInput
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
			return
		}
		if fh.Size > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
			return
		}
		defer f.Close()

		src, err := cardsource.Parse(f, cardsource.FormatFromPath(fh.Filename))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		name = c.PostForm("name")
		if name == "" {
			name = src.Name
		}
		if name == "" {
			name = cardsource.DeckName(fh.Filename)
		}
		cards = src.Cards
	} else {
		var req struct {
			Name  string            `json:"name"`
			Cards []model.CardInput `json:"cards"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		name, cards = req.Name, req.Cards
	}

	if len(cards) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no cards with both a question and an answer"})
		return
	}
	st, err := s.api.Import(name, cards)
	respond(c, st, err)
}

func (s *Server) handleMoveDeck(c *gin.Context) {
	id, ok := deckID(c)
	if !ok {
		return
	}
	var req struct {
		From string `json:"from" binding:"required"`
		To   string `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing from/to"})
		return
	}
	st, err := s.api.MoveDeck(id, req.From, req.To)
	respond(c, st, err)
}

func (s *Server) handleReset(c *gin.Context) {
	id, ok := deckID(c)
	if !ok {
		return
	}
	var req struct {
		Folder model.FolderKey `json:"folder"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Folder.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing folder"})
		return
	}
	st, err := s.api.Reset(id, req.Folder)
	respond(c, st, err)
}

func (s *Server) handleDeleteDeck(c *gin.Context) {
	id, ok := deckID(c)
	if !ok {
		return
	}
	folder := c.Query("folder")
	if folder == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "folder query parameter is required"})
		return
	}
	st, err := s.api.DeleteDeck(id, folder)
	respond(c, st, err)
}

func (s *Server) handleDailyJudgments(c *gin.Context) {
	id, ok := deckID(c)
	if !ok {
		return
	}
	days := model.DefaultStatsDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 366 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 366"})
			return
		}
		days = n
	}

	rows, err := s.api.DailyJudgments(id, days)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deck_id": id, "days": rows})
}
