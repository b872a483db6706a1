package api

import (
	"net/http"
	"sync"
	"time"

	"athletix/tracker/internal/config"
	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/metrics"
	"athletix/tracker/internal/repository"
	"athletix/tracker/internal/service"
	"athletix/tracker/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	messageWelcome = "WELCOME"
	messageChange  = "CHANGE"
	messagePing    = "PING"
	messagePong    = "PONG"
)

// RealtimeMessage is one frame pushed to a websocket client.
type RealtimeMessage struct {
	Type       string `json:"type"`
	Table      string `json:"table,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	State      string `json:"state,omitempty"`
	PreviousID string `json:"previousId,omitempty"`
	Record     any    `json:"record,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// RealtimeHandler streams a session's store changes over a websocket.
type RealtimeHandler struct {
	cfg      config.RealtimeConfig
	metrics  *metrics.Manager
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(cfg config.RealtimeConfig, m *metrics.Manager, allowedOrigins []string) *RealtimeHandler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	return &RealtimeHandler{
		cfg:     cfg,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

type realtimeClient struct {
	conn   *websocket.Conn
	userID string
	send   chan RealtimeMessage
	done   chan struct{}
	once   sync.Once
}

// push queues msg without blocking the store. A client that cannot keep up
// is disconnected.
func (c *realtimeClient) push(msg RealtimeMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		log.WithField("user", c.userID).Warn("realtime client too slow, disconnecting")
		c.stop()
		return false
	}
}

func (c *realtimeClient) stop() {
	c.once.Do(func() { close(c.done) })
}

// Connect upgrades the request and streams changes until the client goes
// away. The handler holds the session for as long as the socket is open.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %s", err)
		return
	}

	actor := sess.Actor()
	client := &realtimeClient{
		conn:   conn,
		userID: actor.ID,
		send:   make(chan RealtimeMessage, h.cfg.SendBuffer),
		done:   make(chan struct{}),
	}
	if h.metrics != nil {
		h.metrics.GaugeRealtimeClients.Inc()
		defer h.metrics.GaugeRealtimeClients.Dec()
	}
	log.WithField("user", actor.ID).Debug("realtime client connected")

	unwatch := h.watchStore(sess, actor.Role, client)
	client.push(RealtimeMessage{
		Type:      messageWelcome,
		Record:    actor,
		Timestamp: time.Now().Unix(),
	})

	writerDone := make(chan struct{})
	go func() {
		h.writePump(client)
		close(writerDone)
	}()

	h.readPump(client)

	unwatch()
	client.stop()
	<-writerDone
	conn.Close()
	log.WithField("user", actor.ID).Debug("realtime client disconnected")
}

func (h *RealtimeHandler) watchStore(sess *service.Session, role domain.Role, client *realtimeClient) func() {
	st := sess.Store()
	redact := func(r domain.InjuryRecord) domain.InjuryRecord { return domain.RedactInjuryForRole(r, role) }
	same := func(p domain.Profile) domain.Profile { return p }

	cancels := []func(){
		watchCollection(st.Profiles, repository.TableProfiles, same, h.forward(client)),
		watchCollection(st.Injuries, repository.TableInjuries, redact, h.forward(client)),
		watchCollection(st.Training, repository.TableTrainingLogs, func(t domain.TrainingRecord) domain.TrainingRecord { return t }, h.forward(client)),
		watchCollection(st.Messages, repository.TableMessages, func(m domain.Message) domain.Message { return m }, h.forward(client)),
		watchCollection(st.Teams, repository.TableTeams, func(t domain.Team) domain.Team { return t }, h.forward(client)),
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

func (h *RealtimeHandler) forward(client *realtimeClient) func(RealtimeMessage) {
	return func(msg RealtimeMessage) {
		if client.push(msg) && h.metrics != nil {
			h.metrics.CounterRealtimePushes.Inc()
		}
	}
}

// watchCollection turns collection changes into change frames. view is
// applied to every record before it leaves the process.
func watchCollection[T store.Record[T]](c *store.Collection[T], table repository.Table, view func(T) T, out func(RealtimeMessage)) func() {
	return c.Watch(func(ch store.Change[T]) {
		out(RealtimeMessage{
			Type:       messageChange,
			Table:      string(table),
			Outcome:    string(ch.Outcome),
			State:      ch.State.String(),
			PreviousID: ch.PreviousID,
			Record:     view(ch.Record),
			Timestamp:  time.Now().Unix(),
		})
	})
}

func (h *RealtimeHandler) readPump(client *realtimeClient) {
	readTimeout := 2 * h.cfg.PingInterval
	client.conn.SetReadDeadline(time.Now().Add(readTimeout))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var msg RealtimeMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithField("user", client.userID).Debugf("websocket read error: %s", err)
			}
			return
		}

		switch msg.Type {
		case messagePing:
			client.push(RealtimeMessage{Type: messagePong, Timestamp: time.Now().Unix()})
		default:
			log.WithField("user", client.userID).Debugf("ignoring realtime message type %q", msg.Type)
		}

		select {
		case <-client.done:
			return
		default:
		}
	}
}

func (h *RealtimeHandler) writePump(client *realtimeClient) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		// unblocks readPump when the writer gives up first
		client.conn.Close()
	}()

	for {
		select {
		case <-client.done:
			client.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case msg := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := client.conn.WriteJSON(msg); err != nil {
				client.stop()
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.stop()
				return
			}
		}
	}
}
