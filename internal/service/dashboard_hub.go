package service

import (
	"context"
	"encoding/json"
	"net/http"
	"readcode_backend/internal/model"
	"readcode_backend/pkg/logger"
	"readcode_backend/pkg/monitoring"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = time.Second
	maxMessageSize = 512

	// 本地广播缓冲。写满时发布方挂起（背压）而不是丢弃，
	// 用延迟换取单个主题内的投递顺序
	broadcastBufferCapacity = 256

	// 跨进程总线使用的 Redis 频道
	answersChannel = "answer_events"
)

const (
	userAnswersType = "USER_ANSWERS"
	likeDislikeType = "LIKE_DISLIKE"
	pingType        = "PING"
)

// TargetName 主题名：班级码和挑战指纹的组合
func TargetName(classCode, challengeMd5 string) string {
	return classCode + "|" + challengeMd5
}

type DashboardHistory struct {
	Invocation string `json:"invocation"`
	Correct    bool   `json:"correct"`
	Answers    string `json:"answers"`
}

type DashboardInfo struct {
	UserID     uint             `json:"userId"`
	Complete   bool             `json:"complete"`
	NumCorrect int              `json:"numCorrect"`
	History    DashboardHistory `json:"history"`
}

type LikeDislikeInfo struct {
	UserID      uint   `json:"userId"`
	LikeDislike string `json:"likeDislike"`
	Type        string `json:"type"`
}

type PingMessage struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

// AnswerEvent 总线上的信封：事件类型、目标主题和不透明负载
type AnswerEvent struct {
	Type    string          `json:"type"`
	Target  string          `json:"target"`
	Payload json.RawMessage `json:"payload"`
}

var dashboardUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// DashboardConn 一条教师看板连接。
// 状态机：Open（已连接、无主题）→ Subscribed（收到首帧后固定主题）
// → Closed（断开后从注册表移除，后续投递一律 no-op）。
type DashboardConn struct {
	hub     *DashboardHub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	start   time.Time
	target  string
}

// DashboardHub 看板连接注册表 + 发布扇出。
// 经过本地有界广播通道串行化所有事件；多进程部署时再经由
// Redis pub/sub 转发，保证同一主题内按发布顺序投递。
type DashboardHub struct {
	Redis     *redis.Client
	broadcast chan AnswerEvent

	mu    sync.RWMutex
	conns map[*DashboardConn]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDashboardHub(rdb *redis.Client) *DashboardHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &DashboardHub{
		Redis:     rdb,
		broadcast: make(chan AnswerEvent, broadcastBufferCapacity),
		conns:     make(map[*DashboardConn]bool),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (h *DashboardHub) Run() {
	h.wg.Add(2)
	go h.drainBroadcast()
	go h.pinger()

	if h.Redis != nil {
		h.wg.Add(1)
		go h.consumeBus()
	}
}

// drainBroadcast 唯一的广播消费者。多进程部署时把事件转发到
// 总线；总线不可用时降级为仅本进程投递并告警，不影响请求本身。
func (h *DashboardHub) drainBroadcast() {
	defer h.wg.Done()
	for {
		select {
		case ev := <-h.broadcast:
			if h.Redis == nil {
				h.dispatchLocal(ev)
				continue
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				logger.Log.Error("Marshal answer event", zap.Error(err))
				continue
			}
			if err := h.Redis.Publish(h.ctx, answersChannel, payload).Err(); err != nil {
				logger.Log.Warn("Bus unavailable, falling back to local delivery", zap.Error(err))
				h.dispatchLocal(ev)
			}
		case <-h.ctx.Done():
			return
		}
	}
}

// consumeBus 订阅总线并把匹配本地连接主题的消息推到对应连接
func (h *DashboardHub) consumeBus() {
	defer h.wg.Done()
	pubsub := h.Redis.Subscribe(h.ctx, answersChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev AnswerEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Log.Error("PubSub unmarshal error", zap.Error(err))
				continue
			}
			h.dispatchLocal(ev)
		case <-h.ctx.Done():
			return
		}
	}
}

// dispatchLocal 把事件投递给本进程内订阅了该主题的全部连接。
// 已关闭的连接不在注册表里，天然 no-op。
// 发送缓冲占满说明对端已经不消费了：断开让客户端重连，
// 而不是静默丢帧，保证在册连接要么收到帧要么被移出注册表。
func (h *DashboardHub) dispatchLocal(ev AnswerEvent) {
	frame, err := json.Marshal(struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}{Type: ev.Type, Data: ev.Payload})
	if err != nil {
		logger.Log.Error("Marshal dashboard frame", zap.Error(err))
		return
	}

	var stalled []*DashboardConn
	h.mu.RLock()
	for conn := range h.conns {
		if conn.target != ev.Target {
			continue
		}
		select {
		case conn.send <- frame:
			monitoring.WsEventCounter.WithLabelValues(ev.Type).Inc()
		default:
			stalled = append(stalled, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range stalled {
		logger.Log.Warn("Dropping stalled dashboard connection", zap.String("target", conn.target))
		h.unregister(conn)
	}
}

// pinger 每秒向所有连接发送携带在线时长的保活帧，
// 既探测半开连接也防止中间代理超时断开
func (h *DashboardHub) pinger() {
	defer h.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.mu.RLock()
			for conn := range h.conns {
				msg := PingMessage{Type: pingType, Msg: time.Since(conn.start).Truncate(time.Second).String()}
				frame, err := json.Marshal(msg)
				if err != nil {
					continue
				}
				select {
				case conn.send <- frame:
				default:
				}
			}
			h.mu.RUnlock()
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *DashboardHub) register(conn *DashboardConn) {
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
	monitoring.WsConnectionsGauge.Inc()
}

// unregister 幂等：断开回调与周期清理可以重复调用
func (h *DashboardHub) unregister(conn *DashboardConn) {
	h.mu.Lock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		close(conn.send)
		monitoring.WsConnectionsGauge.Dec()
	}
	h.mu.Unlock()
}

// subscribe 首帧到达后为连接固定主题，之后的入站帧全部忽略
func (h *DashboardHub) subscribe(conn *DashboardConn, target string) {
	h.mu.Lock()
	if conn.target == "" {
		conn.target = target
	}
	h.mu.Unlock()
}

// PublishAnswers 把一次判定结果投进广播通道。
// 缓冲满时阻塞（背压），请求侧视角是 fire-and-forget。
func (h *DashboardHub) PublishAnswers(userID uint, classCode, challengeMd5 string, complete bool, numCorrect int, history *model.ChallengeHistory, maxHistoryLength int) {
	answers := make([]string, 0, len(history.Answers))
	for i := len(history.Answers) - 1; i >= 0 && len(answers) < maxHistoryLength; i-- {
		answers = append(answers, history.Answers[i])
	}
	info := DashboardInfo{
		UserID:     userID,
		Complete:   complete,
		NumCorrect: numCorrect,
		History: DashboardHistory{
			Invocation: history.Invocation,
			Correct:    history.Correct,
			Answers:    strings.Join(answers, "<br>"),
		},
	}
	h.publish(userAnswersType, TargetName(classCode, challengeMd5), info)
}

func (h *DashboardHub) PublishLikeDislike(userID uint, classCode, challengeMd5 string, likeDislike int16) {
	info := LikeDislikeInfo{
		UserID:      userID,
		LikeDislike: likeDislikeEmoji(likeDislike),
		Type:        likeDislikeType,
	}
	h.publish(likeDislikeType, TargetName(classCode, challengeMd5), info)
}

func (h *DashboardHub) publish(eventType, target string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Error("Marshal publish payload", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- AnswerEvent{Type: eventType, Target: target, Payload: data}:
	case <-h.ctx.Done():
	}
}

func likeDislikeEmoji(likeDislike int16) string {
	switch likeDislike {
	case model.LikeSelected:
		return "👍"
	case model.DislikeSelected:
		return "👎"
	default:
		return ""
	}
}

// Stop 关闭所有连接并结束后台任务
func (h *DashboardHub) Stop() {
	logger.Log.Info("DashboardHub stopping: closing connections...")

	h.mu.Lock()
	closed := 0
	for conn := range h.conns {
		delete(h.conns, conn)
		close(conn.send)
		closed++
	}
	h.mu.Unlock()

	h.cancel()
	h.wg.Wait()
	monitoring.WsConnectionsGauge.Set(0)
	logger.Log.Info("DashboardHub stopped", zap.Int("closedConnections", closed))
}

func (c *DashboardConn) readPump(target string) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err))
			}
			break
		}

		if !c.limiter.Allow() {
			continue
		}

		// 首帧只用来固定订阅主题，之后的入站帧一概忽略
		c.hub.subscribe(c, target)
	}
}

func (c *DashboardConn) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)

		if n := len(c.send); n > 0 {
			for i := 0; i < n; i++ {
				w.Write(<-c.send)
			}
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ServeDashboardWs 升级连接并注册到注册表，主题由路径参数确定，
// 在首个入站帧到达时生效
func ServeDashboardWs(hub *DashboardHub, w http.ResponseWriter, r *http.Request, classCode, challengeMd5 string) {
	conn, err := dashboardUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	client := &DashboardConn{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 64),
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		start:   time.Now(),
	}
	hub.register(client)

	go client.writePump()
	go client.readPump(TargetName(classCode, challengeMd5))
}
