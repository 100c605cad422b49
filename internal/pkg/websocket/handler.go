package websocket

import (
	"context"
	"crypto/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// PrincipalResolver turns a credential into a principal
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, token string) (models.Principal, error)
}

// Handler for WebSocket connections
type Handler struct {
	hub        *Hub
	resolver   PrincipalResolver
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	opts       Options
	logger     zerolog.Logger

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, resolver PrincipalResolver, dispatcher *Dispatcher, opts Options, logger zerolog.Logger) *Handler {
	opts = opts.withDefaults()
	h := &Handler{
		hub:        hub,
		resolver:   resolver,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}

func (h *Handler) newConnectionID() string {
	h.entropyMu.Lock()
	defer h.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), h.entropy).String()
}

// credential reads the token from the query string or the Authorization header
func credential(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	token, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
	if err != nil {
		return ""
	}
	return token
}

// HandleConnection authenticates the request and upgrades it to a socket.
// A bad credential is refused with 401 before any upgrade.
func (h *Handler) HandleConnection(c *gin.Context) {
	token := credential(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeTokenNotFound, "Authentication token is required")))
		return
	}

	principal, err := h.resolver.ResolvePrincipal(c.Request.Context(), token)
	if err != nil {
		status := http.StatusUnauthorized
		switch dto.ErrorCodeFor(err) {
		case dto.ErrorCodePendingApproval:
			status = http.StatusForbidden
		case dto.ErrorCodeDatabaseError, dto.ErrorCodeInternalServer:
			status = http.StatusInternalServerError
		}
		h.logger.Debug().Err(err).Str("remoteAddr", c.ClientIP()).Msg("WebSocket authentication failed")
		c.JSON(status, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeFor(err), dto.PublicMessage(err))))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("principalID", principal.ID.String()).
			Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := newClient(h.hub, conn, h.newConnectionID(), principal, h.opts, h.logger)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.dispatchPump(h.dispatcher)
	go client.readPump()

	h.logger.Info().
		Str("connectionID", client.id).
		Str("principalID", principal.ID.String()).
		Str("remoteAddr", conn.RemoteAddr().String()).
		Msg("WebSocket connection established")
}
