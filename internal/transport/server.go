package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fathomrtc/signalcore/internal/logging"
	"github.com/fathomrtc/signalcore/internal/ratelimit"
	"github.com/fathomrtc/signalcore/internal/signaling"
)

// Server upgrades inbound HTTP requests to WebSocket connections and feeds
// them into a signaling.Dispatcher.
type Server struct {
	dispatcher     *signaling.Dispatcher
	rateLimiter    *ratelimit.RateLimiter
	allowedOrigins []string
}

// NewServer builds a Server. allowedOrigins is a comma-separated list of
// scheme://host[:port] origins permitted to open a WebSocket connection;
// an empty Origin header (non-browser clients) is always allowed,
// following the teacher's validateOrigin stance.
func NewServer(dispatcher *signaling.Dispatcher, rl *ratelimit.RateLimiter, allowedOrigins string) *Server {
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return &Server{dispatcher: dispatcher, rateLimiter: rl, allowedOrigins: origins}
}

// RegisterRoutes wires the WebSocket upgrade endpoint onto a gin engine.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", s.rateLimiter.Middleware(), s.handleUpgrade)
}

func (s *Server) handleUpgrade(c *gin.Context) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return validateOrigin(r, s.allowedOrigins) == nil
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to upgrade connection", zap.Error(err))
		return
	}

	handle := newWSConn(conn)
	s.dispatcher.OnAccept(handle)

	go handle.writePump()
	handle.readPump(s.dispatcher)
}

// validateOrigin checks the request's Origin header against the allowed
// list, comparing scheme and host only (adapted from the teacher's
// transport.validateOrigin).
func validateOrigin(r *http.Request, allowedOrigins []string) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return nil
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		logging.Warn(context.Background(), "invalid origin URL", zap.String("origin", origin))
		return fmt.Errorf("invalid origin URL: %w", err)
	}

	for _, allowed := range allowedOrigins {
		allowedURL, err := url.Parse(allowed)
		if err != nil {
			continue
		}
		if originURL.Scheme == allowedURL.Scheme && originURL.Host == allowedURL.Host {
			return nil
		}
	}

	logging.Warn(context.Background(), "origin not in allowed list", zap.String("origin", origin))
	return fmt.Errorf("origin not allowed: %s", origin)
}
