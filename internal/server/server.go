// Package server hosts the bot's HTTP surface: the Bot Framework messaging
// endpoint, a health check and a read-only transcript API.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/deskbot/internal/models"
)

// TranscriptReader returns the stored history of a conversation.
type TranscriptReader interface {
	History(ctx context.Context, platform, conversationID string, limit int) ([]models.TranscriptEntry, error)
}

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	Port        int
	Messages    gin.HandlerFunc  // POST /api/messages; omitted when nil
	Auth        gin.HandlerFunc  // optional middleware in front of Messages
	Transcripts TranscriptReader // optional; enables the transcript API
	Platform    string           // default platform for transcript lookups
	Out         io.Writer
}

// NewRouter builds the gin engine for opts.
func NewRouter(opts StartOpts) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Messages != nil {
		handlers := []gin.HandlerFunc{}
		if opts.Auth != nil {
			handlers = append(handlers, opts.Auth)
		}
		handlers = append(handlers, opts.Messages)
		router.POST("/api/messages", handlers...)
	}
	if opts.Transcripts != nil {
		router.GET("/api/conversations/:id/transcript", handleTranscript(opts.Transcripts, opts.Platform))
	}
	return router
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Messages == nil && opts.Transcripts == nil {
		return fmt.Errorf("server: nothing to serve")
	}
	if opts.Port <= 0 {
		opts.Port = 3978
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

type transcriptEntry struct {
	Sequence  int       `json:"sequence"`
	Role      string    `json:"role"`
	UserName  string    `json:"user_name,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func handleTranscript(store TranscriptReader, defaultPlatform string) gin.HandlerFunc {
	return func(c *gin.Context) {
		platform := c.DefaultQuery("platform", defaultPlatform)
		if platform == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "platform is required"})
			return
		}
		limit := 0
		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}

		id := c.Param("id")
		entries, err := store.History(c.Request.Context(), platform, id, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out := make([]transcriptEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, transcriptEntry{
				Sequence:  e.Sequence,
				Role:      e.Role,
				UserName:  e.UserName,
				Content:   e.Content,
				CreatedAt: e.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{
			"platform":        platform,
			"conversation_id": id,
			"entries":         out,
		})
	}
}
