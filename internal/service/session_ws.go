package service

import (
	"net/http"
	"time"

	"exam_platform_backend/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeSessionWS 把会话事件流桥接到 WebSocket 连接：
// 每秒的剩余时间、答案保存进度、到时与提交通知。
// 连接断开不影响会话本身，重连即重新订阅。
func ServeSessionWS(session *ExamSession, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("session websocket upgrade failed", zap.Error(err))
		return
	}

	events := session.Subscribe()

	// 读循环只用于感知客户端断开和应答 pong
	go func() {
		defer conn.Close()
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(wsPongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				session.Unsubscribe(events)
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	defer conn.Close()

	// 建连后先推一帧当前状态
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	_ = conn.WriteJSON(SessionEvent{Type: EventTick, Remaining: session.RemainingSeconds()})

	for {
		select {
		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				// 会话结束，服务端主动关闭
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				session.Unsubscribe(events)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				session.Unsubscribe(events)
				return
			}
		}
	}
}
