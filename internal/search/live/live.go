// Package live serves the interactive search websocket. Each connection owns
// one session.Session: client keystrokes go in as "query" messages and every
// state change comes back as a "snapshot" message.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/session"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4 << 10
)

// Client message types.
const (
	TypeQuery = "query"
	TypePage  = "page"
	TypeClear = "clear"
)

// Server message types.
const (
	TypeSnapshot = "snapshot"
	TypeError    = "error"
)

// ClientMessage is what the browser sends.
type ClientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Page int    `json:"page,omitempty"`
}

// ServerMessage is what the server sends back.
type ServerMessage struct {
	Type     string            `json:"type"`
	Session  string            `json:"session"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Error    string            `json:"error,omitempty"`
}

type PostSource interface {
	ListAll(ctx context.Context) ([]content.Post, error)
}

type Options struct {
	Debounce time.Duration
	PageSize int
	// IdleTimeout closes a connection that sends nothing for this long.
	IdleTimeout time.Duration
	// AllowOrigins lists accepted Origin headers; empty or "*" accepts any.
	AllowOrigins []string
	Tracker      analytics.Tracker
	Metrics      *metrics.Metrics
}

type Handler struct {
	posts    PostSource
	resolver session.Resolver
	opts     Options
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHandler(posts PostSource, resolver session.Resolver, opts Options) *Handler {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 5 * time.Minute
	}
	if opts.Tracker == nil {
		opts.Tracker = analytics.Discard{}
	}
	h := &Handler{
		posts:    posts,
		resolver: resolver,
		opts:     opts,
		logger:   slog.Default().With("component", "live-search"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowOrigins) == 0 {
		return true
	}
	for _, o := range h.opts.AllowOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades GET /api/v1/search/live[?category=] and runs the
// connection until either side closes it or it goes idle.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListAll(r.Context())
	if err != nil {
		h.logger.Error("loading posts failed", "error", err)
		http.Error(w, `{"error":"failed to load posts"}`, http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	ctx := logger.WithSessionID(context.WithoutCancel(r.Context()), id)
	c := &connection{
		id:     id,
		conn:   conn,
		errs:   make(chan string, 4),
		done:   make(chan struct{}),
		logger: logger.FromContext(ctx),
	}
	requestID := logger.RequestID(ctx)
	c.session = session.New(ctx, posts, h.resolver, session.Options{
		Debounce: h.opts.Debounce,
		PageSize: h.opts.PageSize,
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		Metrics:  h.opts.Metrics,
		OnSettled: func(snap session.Snapshot, elapsed time.Duration) {
			if strings.TrimSpace(snap.RawQuery) == "" {
				return
			}
			ev := analytics.NewSearchEvent(analytics.ChannelLive, snap.RawQuery, snap.ResolvedQuery,
				string(snap.Source), snap.Result.AppliedTranslation != nil,
				snap.Result.TotalMatches, len(snap.Result.Posts), elapsed)
			ev.RequestID = requestID
			h.opts.Tracker.TrackSearch(ev)
		},
	})

	if h.opts.Metrics != nil {
		h.opts.Metrics.LiveSessions.Inc()
		defer h.opts.Metrics.LiveSessions.Dec()
	}
	c.logger.Info("live session opened", "category", r.URL.Query().Get("category"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writer()
	}()
	c.reader(h.opts.IdleTimeout)

	c.session.Close()
	close(c.done)
	wg.Wait()
	conn.Close()
	c.logger.Info("live session closed")
}

type connection struct {
	id      string
	conn    *websocket.Conn
	session *session.Session
	errs    chan string
	done    chan struct{}
	logger  *slog.Logger
}

func (c *connection) reader(idle time.Duration) {
	c.conn.SetReadLimit(maxMessageSize)
	for {
		c.conn.SetReadDeadline(time.Now().Add(idle))
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			var netErr interface{ Timeout() bool }
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				c.logger.Info("live session idle, closing", "idle_timeout", idle)
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
				c.logger.Warn("unexpected close", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reportError("malformed message")
			continue
		}
		switch msg.Type {
		case TypeQuery:
			c.session.OnQueryChange(msg.Text)
		case TypePage:
			c.session.SetPage(msg.Page)
		case TypeClear:
			c.session.Clear()
		default:
			c.reportError("unknown message type " + strconv.Quote(msg.Type))
		}
	}
}

func (c *connection) reportError(msg string) {
	select {
	case c.errs <- msg:
	default:
	}
}

// writer is the only goroutine that writes to conn.
func (c *connection) writer() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	updates := c.session.Updates()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if err := c.write(ServerMessage{Type: TypeSnapshot, Session: c.id, Snapshot: &snap}); err != nil {
				c.logger.Debug("write failed", "error", err)
				c.conn.Close()
				return
			}
		case msg := <-c.errs:
			if err := c.write(ServerMessage{Type: TypeError, Session: c.id, Error: msg}); err != nil {
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *connection) write(msg ServerMessage) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}
