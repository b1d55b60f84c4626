package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jamiewalsh/careerprep/internal/interview"
	"github.com/jamiewalsh/careerprep/internal/speech"
	"github.com/jamiewalsh/careerprep/internal/types"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = 54 * time.Second
)

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// liveMessage is the JSON envelope for every frame on the live channel.
type liveMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// handleLive upgrades to a WebSocket and attaches the connection to the
// session as its microphone and speaker. The client drives the interview
// over this channel: start, listen, submit turns, end, and acknowledge
// audio playback.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live] session=%s upgrade failed: %v", sess.ID, err)
		return
	}

	lc := newLiveConn(sess, conn, s.requestTimeout)
	if err := sess.AttachCapabilities(interview.NewAudioBridge(s.synthesizer(), lc), lc); err != nil {
		lc.sendError(err.Error())
		lc.shutdown()
		return
	}

	lc.sendInfo("connected", map[string]any{
		"session_id": sess.ID,
		"stage":      sess.Stage(),
	})

	go lc.pingLoop()
	lc.readLoop()
}

// liveConn is one WebSocket connection serving one interview session. It
// implements interview.Recognizer (the client's microphone is on the other
// end) and interview.Player (synthesized audio is shipped to the client,
// which reports playback completion).
type liveConn struct {
	sess    *interview.Session
	conn    *websocket.Conn
	timeout time.Duration

	writeMu sync.Mutex

	mu        sync.Mutex
	playbacks map[string]*livePlayback
	closed    bool
	done      chan struct{}
}

func newLiveConn(sess *interview.Session, conn *websocket.Conn, timeout time.Duration) *liveConn {
	return &liveConn{
		sess:      sess,
		conn:      conn,
		timeout:   timeout,
		playbacks: make(map[string]*livePlayback),
		done:      make(chan struct{}),
	}
}

// Available implements interview.Recognizer.
func (lc *liveConn) Available() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return !lc.closed
}

// Begin implements interview.Recognizer. The actual recognition runs in the
// client's browser; Begin just tells it to open the microphone.
func (lc *liveConn) Begin() error {
	return lc.writeMessage("listen_started", nil)
}

// Cancel implements interview.Recognizer.
func (lc *liveConn) Cancel() {
	lc.sendInfo("listen_cancelled", nil)
}

// Close implements interview.Recognizer.
func (lc *liveConn) Close() {
	lc.shutdown()
}

// Play implements interview.Player: the clip is shipped to the client as a
// base64 frame, and the returned playback completes when the client reports
// the audio finished.
func (lc *liveConn) Play(clip speech.Clip) (interview.Playback, error) {
	pb := &livePlayback{
		id:   uuid.NewString(),
		conn: lc,
		done: make(chan struct{}),
	}

	lc.mu.Lock()
	if lc.closed {
		lc.mu.Unlock()
		return nil, websocket.ErrCloseSent
	}
	lc.playbacks[pb.id] = pb
	lc.mu.Unlock()

	payload := map[string]string{
		"id":    pb.id,
		"mime":  clip.MIME,
		"audio": base64.StdEncoding.EncodeToString(clip.Data),
	}
	if err := lc.writeMessage("audio", payload); err != nil {
		lc.removePlayback(pb.id)
		return nil, err
	}
	return pb, nil
}

func (lc *liveConn) removePlayback(id string) *livePlayback {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	pb := lc.playbacks[id]
	delete(lc.playbacks, id)
	return pb
}

// readLoop processes client frames until the connection drops.
func (lc *liveConn) readLoop() {
	defer lc.shutdown()

	lc.conn.SetReadDeadline(time.Now().Add(livePongWait)) //nolint:errcheck
	lc.conn.SetPongHandler(func(string) error {
		return lc.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		var msg liveMessage
		if err := lc.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[live] session=%s read error: %v", lc.sess.ID, err)
			}
			return
		}
		lc.handle(msg)
	}
}

func (lc *liveConn) handle(msg liveMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), lc.timeout)
	defer cancel()

	switch msg.Type {
	case "start":
		var caps types.StartInterviewRequest
		if msg.Data != nil {
			if err := json.Unmarshal(msg.Data, &caps); err != nil {
				lc.sendError("invalid start payload")
				return
			}
		}
		opening, err := lc.sess.Start(ctx, caps)
		if err != nil {
			lc.sendError(err.Error())
			return
		}
		lc.sendInfo("message", types.InterviewTurnResponse{Message: opening})

	case "listen":
		if err := lc.sess.BeginListening(); err != nil {
			lc.sendError(err.Error())
		}

	case "turn":
		var req types.CandidateTurnRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.Text == "" {
			lc.sendError("invalid turn payload")
			return
		}
		resp, err := lc.sess.SubmitCandidateTurn(ctx, req.Text)
		if err != nil {
			lc.sendError(err.Error())
			return
		}
		lc.sendInfo("message", resp)
		if resp.Finished {
			go lc.streamFeedback()
		}

	case "end":
		if err := lc.sess.ForceEnd(); err != nil {
			lc.sendError(err.Error())
			return
		}
		go lc.streamFeedback()

	case "audio_done":
		var ack struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(msg.Data, &ack); err != nil || ack.ID == "" {
			lc.sendError("invalid audio_done payload")
			return
		}
		if pb := lc.removePlayback(ack.ID); pb != nil {
			pb.finish()
		}

	default:
		lc.sendError("unknown message type: " + msg.Type)
	}
}

// streamFeedback pushes the feedback frame once generation completes.
func (lc *liveConn) streamFeedback() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*lc.timeout)
	defer cancel()

	fb, err := lc.sess.WaitFeedback(ctx)
	if err != nil {
		lc.sendError("feedback not ready: " + err.Error())
		return
	}
	lc.sendInfo("feedback", fb)
}

// pingLoop keeps the connection alive until shutdown.
func (lc *liveConn) pingLoop() {
	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lc.writeMu.Lock()
			err := lc.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait))
			lc.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-lc.done:
			return
		}
	}
}

// shutdown marks the connection unavailable, releases pending playbacks, and
// closes the socket. The session itself survives for REST access.
func (lc *liveConn) shutdown() {
	lc.mu.Lock()
	if lc.closed {
		lc.mu.Unlock()
		return
	}
	lc.closed = true
	pending := lc.playbacks
	lc.playbacks = make(map[string]*livePlayback)
	lc.mu.Unlock()

	close(lc.done)
	for _, pb := range pending {
		pb.finish()
	}
	lc.conn.Close() //nolint:errcheck
	log.Printf("[live] session=%s connection closed", lc.sess.ID)
}

func (lc *liveConn) writeMessage(msgType string, data any) error {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = encoded
	}

	msg := liveMessage{
		Type:      msgType,
		SessionID: lc.sess.ID,
		Data:      raw,
		Timestamp: time.Now().Unix(),
	}

	lc.writeMu.Lock()
	defer lc.writeMu.Unlock()
	lc.conn.SetWriteDeadline(time.Now().Add(liveWriteWait)) //nolint:errcheck
	return lc.conn.WriteJSON(msg)
}

func (lc *liveConn) sendInfo(msgType string, data any) {
	if err := lc.writeMessage(msgType, data); err != nil {
		log.Printf("[live] session=%s write %s failed: %v", lc.sess.ID, msgType, err)
	}
}

func (lc *liveConn) sendError(message string) {
	lc.sendInfo("error", map[string]string{"error": message})
}

// livePlayback is one audio clip in flight to the client. Done is closed only
// on the client's completion ack; Stop tells the client to halt playback.
type livePlayback struct {
	id   string
	conn *liveConn

	once sync.Once
	done chan struct{}
}

func (p *livePlayback) Done() <-chan struct{} { return p.done }

func (p *livePlayback) Stop() {
	if pb := p.conn.removePlayback(p.id); pb != nil {
		p.conn.sendInfo("audio_stop", map[string]string{"id": p.id})
	}
}

func (p *livePlayback) finish() {
	p.once.Do(func() { close(p.done) })
}
