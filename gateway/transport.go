package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

	opDispatch            = 0
	opHeartbeat           = 1
	opIdentify            = 2
	opHeartbeatACK        = 11
	opHello               = 10
	opRequestGuildMembers = 8

	// GUILDS | GUILD_MEMBERS
	identifyIntents = 1<<0 | 1<<1

	closeAuthenticationFailed = 4004
)

type payload struct {
	Op   int             `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  *int64          `json:"s,omitempty"`
	Type string          `json:"t,omitempty"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type identifyData struct {
	Token      string            `json:"token"`
	Intents    int               `json:"intents"`
	Properties map[string]string `json:"properties"`
}

type requestMembersData struct {
	GuildID string   `json:"guild_id"`
	UserIDs []string `json:"user_ids"`
	Limit   int      `json:"limit"`
	Nonce   string   `json:"nonce"`
}

type memberChunkData struct {
	GuildID string `json:"guild_id"`
	Nonce   string `json:"nonce"`
	Members []struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"members"`
}

// WSTransport speaks the chat service's websocket gateway protocol:
// hello/identify/ready handshake, heartbeats, and guild member requests
// correlated by nonce.
type WSTransport struct {
	url      string
	token    string
	logger   Logger
	queryTTL time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan *memberChunkData
	closed  chan struct{}

	errs chan error
}

type WSOption func(*WSTransport)

func WithGatewayURL(url string) WSOption {
	return func(t *WSTransport) {
		if url != "" {
			t.url = url
		}
	}
}

func WithWSLogger(logger Logger) WSOption {
	return func(t *WSTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func NewWSTransport(token string, opts ...WSOption) *WSTransport {
	t := &WSTransport{
		url:      defaultGatewayURL,
		token:    token,
		logger:   noopLogger{},
		queryTTL: 10 * time.Second,
		pending:  map[string]chan *memberChunkData{},
		errs:     make(chan error, 4),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	return t
}

var _ Transport = (*WSTransport)(nil)

// Dial opens the socket, authenticates, and blocks until the service
// acknowledges ready. A rejected token maps to ErrAuthenticationFailed.
func (t *WSTransport) Dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "gateway websocket dial failed")
	}

	hello, err := t.readPayload(ctx, conn)
	if err != nil {
		conn.Close()
		return err
	}
	if hello.Op != opHello {
		conn.Close()
		return errors.New("gateway handshake expected hello", errors.CategoryOperation)
	}

	var hd helloData
	if err := json.Unmarshal(hello.Data, &hd); err != nil {
		conn.Close()
		return errors.Wrap(err, errors.CategoryOperation, "gateway hello malformed")
	}

	identify := identifyData{
		Token:   t.token,
		Intents: identifyIntents,
		Properties: map[string]string{
			"os":      "linux",
			"browser": "taskvine",
			"device":  "taskvine",
		},
	}
	raw, _ := json.Marshal(identify)
	if err := conn.WriteJSON(payload{Op: opIdentify, Data: raw}); err != nil {
		conn.Close()
		return errors.Wrap(err, errors.CategoryOperation, "gateway identify failed")
	}

	// wait for the READY dispatch; a 4004 close means bad credentials
	for {
		p, err := t.readPayload(ctx, conn)
		if err != nil {
			conn.Close()
			if isCloseCode(err, closeAuthenticationFailed) {
				return ErrAuthenticationFailed
			}
			return err
		}
		if p.Op == opDispatch && p.Type == "READY" {
			break
		}
	}

	t.mu.Lock()
	t.conn = conn
	t.closed = make(chan struct{})
	closed := t.closed
	t.mu.Unlock()

	go t.heartbeatLoop(conn, time.Duration(hd.HeartbeatInterval)*time.Millisecond, closed)
	go t.readLoop(conn, closed)

	return nil
}

// RequestMember asks the service whether the user appears in the guild's
// membership snapshot.
func (t *WSTransport) RequestMember(ctx context.Context, guildID, userID string) (bool, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return false, errors.New("gateway transport not connected", errors.CategoryOperation)
	}

	nonce := uuid.New().String()[:32]
	ch := make(chan *memberChunkData, 1)

	t.mu.Lock()
	t.pending[nonce] = ch
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, nonce)
		t.mu.Unlock()
	}()

	raw, _ := json.Marshal(requestMembersData{
		GuildID: guildID,
		UserIDs: []string{userID},
		Limit:   0,
		Nonce:   nonce,
	})

	t.mu.Lock()
	err := conn.WriteJSON(payload{Op: opRequestGuildMembers, Data: raw})
	t.mu.Unlock()
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryOperation, "gateway member request failed")
	}

	timer := time.NewTimer(t.queryTTL)
	defer timer.Stop()

	select {
	case chunk := <-ch:
		for _, m := range chunk.Members {
			if m.User.ID == userID {
				return true, nil
			}
		}
		return false, nil
	case <-timer.C:
		return false, errors.New("gateway member request timed out", errors.CategoryOperation)
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (t *WSTransport) Errs() <-chan error {
	return t.errs
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed != nil {
		select {
		case <-t.closed:
		default:
			close(t.closed)
		}
		t.closed = nil
	}

	if t.conn != nil {
		err := t.conn.Close()
		t.conn = nil
		return err
	}

	return nil
}

func (t *WSTransport) heartbeatLoop(conn *websocket.Conn, interval time.Duration, closed chan struct{}) {
	if interval <= 0 {
		interval = 41 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			t.mu.Lock()
			err := conn.WriteJSON(payload{Op: opHeartbeat})
			t.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (t *WSTransport) readLoop(conn *websocket.Conn, closed chan struct{}) {
	for {
		var p payload
		if err := conn.ReadJSON(&p); err != nil {
			select {
			case <-closed:
				// deliberate shutdown, not a transport failure
			default:
				t.mu.Lock()
				t.conn = nil
				t.mu.Unlock()
				select {
				case t.errs <- err:
				default:
				}
			}
			return
		}

		if p.Op == opDispatch && p.Type == "GUILD_MEMBERS_CHUNK" {
			var chunk memberChunkData
			if err := json.Unmarshal(p.Data, &chunk); err != nil {
				t.logger.Warn("gateway member chunk malformed: %v", err)
				continue
			}

			t.mu.Lock()
			ch, ok := t.pending[chunk.Nonce]
			t.mu.Unlock()
			if ok {
				select {
				case ch <- &chunk:
				default:
				}
			}
		}
	}
}

func (t *WSTransport) readPayload(ctx context.Context, conn *websocket.Conn) (*payload, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		defer conn.SetReadDeadline(time.Time{})
	}

	var p payload
	if err := conn.ReadJSON(&p); err != nil {
		return nil, err
	}

	return &p, nil
}

func isCloseCode(err error, code int) bool {
	closeErr, ok := err.(*websocket.CloseError)
	return ok && closeErr.Code == code
}
