package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fortune-master/backend/internal/agent"
	"fortune-master/backend/internal/knowledge"
	"fortune-master/backend/internal/metrics"
	apperrors "fortune-master/backend/pkg/errors"
)

const (
	maxWebSocketMessageBytes = 64 << 10
	webSocketWriteTimeout    = 10 * time.Second
)

// Chatter answers one query within a session
type Chatter interface {
	Chat(ctx context.Context, sessionID, query string) *agent.Result
}

// Ingester loads documents into the knowledge base
type Ingester interface {
	IngestTexts(ctx context.Context, texts []string) (*knowledge.Report, error)
	IngestURLs(ctx context.Context, urls []string) (*knowledge.Report, error)
}

type chatRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	SessionID  string             `json:"session_id"`
	Mood       string             `json:"mood"`
	VoiceStyle string             `json:"voice_style"`
	Output     string             `json:"output"`
	Error      *agent.ErrorResult `json:"error,omitempty"`
}

func toChatResponse(res *agent.Result) chatResponse {
	return chatResponse{
		SessionID:  res.SessionID,
		Mood:       res.Mood.String(),
		VoiceStyle: res.VoiceStyle,
		Output:     res.Output(),
		Error:      res.Error,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // no auth; any origin may connect
	},
}

// newRouter builds the HTTP API. ingester may be nil when no knowledge base
// is configured.
func newRouter(log *zap.Logger, chatter Chatter, ingester Ingester) *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"Hello": "World"})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.POST("/chat", func(c *gin.Context) {
		req := chatRequest{
			Query:     c.Query("query"),
			SessionID: c.Query("session_id"),
		}
		if req.Query == "" && c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		if strings.TrimSpace(req.Query) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
			return
		}

		res := chatter.Chat(c.Request.Context(), req.SessionID, req.Query)
		c.JSON(http.StatusOK, toChatResponse(res))
	})

	router.GET("/ws", func(c *gin.Context) {
		serveWebSocket(c, log, chatter)
	})

	router.POST("/add_texts", func(c *gin.Context) {
		if ingester == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "knowledge base is not configured"})
			return
		}

		var req struct {
			Texts []string `json:"texts" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		report, err := ingester.IngestTexts(c.Request.Context(), req.Texts)
		if err != nil {
			log.Error("Failed to ingest texts", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest texts"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "report": report})
	})

	router.POST("/add_urls", func(c *gin.Context) {
		if ingester == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "knowledge base is not configured"})
			return
		}

		var req struct {
			URLs []string `json:"urls" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		report, err := ingester.IngestURLs(c.Request.Context(), req.URLs)
		if err != nil {
			log.Error("Failed to ingest urls", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest urls"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "report": report})
	})

	return router
}

// serveWebSocket answers each text frame as a query. A frame may be a bare
// query or a JSON chatRequest; the connection keeps one session throughout.
func serveWebSocket(c *gin.Context, log *zap.Logger, chatter Chatter) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxWebSocketMessageBytes)

	// The request context outlives a hijacked connection, so a failed read
	// is what cancels an in-flight run.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	frames := readFrames(ctx, cancel, conn, log)

	sessionID := c.Query("session_id")
	for payload := range frames {
		req := chatRequest{Query: string(payload)}
		if trimmed := strings.TrimSpace(req.Query); strings.HasPrefix(trimmed, "{") {
			var framed chatRequest
			if json.Unmarshal([]byte(trimmed), &framed) == nil {
				req = framed
			}
		}
		if req.SessionID == "" {
			req.SessionID = sessionID
		}

		var resp chatResponse
		if strings.TrimSpace(req.Query) == "" {
			resp = chatResponse{
				SessionID: req.SessionID,
				Error:     &agent.ErrorResult{Kind: apperrors.KindInvalidRequest, Message: "query is required"},
			}
		} else {
			res := chatter.Chat(ctx, req.SessionID, req.Query)
			if ctx.Err() != nil {
				log.Debug("WebSocket client went away during a run", zap.String("session_id", res.SessionID))
				return
			}
			sessionID = res.SessionID
			resp = toChatResponse(res)
		}

		_ = conn.SetWriteDeadline(time.Now().Add(webSocketWriteTimeout))
		if err := conn.WriteJSON(resp); err != nil {
			log.Debug("WebSocket write failed", zap.Error(err))
			return
		}
	}
}

// readFrames delivers text frames until the peer goes away, then cancels ctx
// and closes the channel.
func readFrames(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, log *zap.Logger) <-chan []byte {
	frames := make(chan []byte)
	go func() {
		defer close(frames)
		defer cancel()
		for {
			msgType, payload, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("WebSocket closed unexpectedly", zap.Error(err))
				}
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			select {
			case frames <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return frames
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
