package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/talkiehq/talkie/internal/domain"
	"github.com/talkiehq/talkie/internal/hub"
	"github.com/talkiehq/talkie/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler terminates /ws upgrade requests and runs the connection pumps.
type Handler struct {
	Hub       *hub.Hub
	ReadLimit int64
}

// Handle upgrades the request and registers the session. Identity arrives as
// userId/username query parameters, optionally with an inline bearer token.
func (h *Handler) Handle(ctx context.Context, c *gin.Context) {
	userID := c.Query("userId")
	username := c.Query("username")
	token := c.Query("token")

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Str("module", "adapters.ws").Err(err).Msg("upgrade failed")
		return
	}

	user, err := domain.NewUser(userID, username)
	if err != nil {
		// Close after the upgrade so the client sees a proper close frame.
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Missing userId or username")
		_ = sock.WriteControl(websocket.CloseMessage, msg, deadline())
		_ = sock.Close()
		return
	}

	if h.ReadLimit > 0 {
		sock.SetReadLimit(h.ReadLimit)
	}

	conn := NewConn(sock)
	sess := h.Hub.Connect(ctx, *user, conn, token)

	sock.SetPongHandler(func(string) error {
		// A late pong from a replaced socket must not refresh the
		// replacement's liveness.
		h.Hub.Registry.MarkAliveIfSame(user.ID, sess.SID())
		return nil
	})

	go conn.writePump(ctx)
	go h.readPump(ctx, conn, sess)
}

func (h *Handler) readPump(ctx context.Context, conn *Conn, sess *session.Session) {
	defer func() {
		conn.Terminate()
		h.Hub.OnDisconnect(sess)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Info().Str("module", "adapters.ws").Str("user", string(sess.User().ID)).Msg("client requested close")
			} else if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
				log.Warn().Str("module", "adapters.ws").Str("user", string(sess.User().ID)).Err(err).Msg("read error")
			}
			return
		}
		h.Hub.HandleFrame(ctx, sess, data)
	}
}
