package service

import (
	"encoding/json"
	"readcode_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConn(hub *DashboardHub, target string) *DashboardConn {
	conn := &DashboardConn{
		hub:   hub,
		send:  make(chan []byte, 16),
		start: time.Now(),
	}
	hub.register(conn)
	if target != "" {
		hub.subscribe(conn, target)
	}
	return conn
}

// recvFrame 取下一个业务帧，跳过保活 PING
func recvFrame(t *testing.T, conn *DashboardConn) map[string]json.RawMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-conn.send:
			var decoded map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(frame, &decoded))
			if string(decoded["type"]) == `"PING"` {
				continue
			}
			return decoded
		case <-deadline:
			t.Fatal("no frame delivered")
			return nil
		}
	}
}

func TestDispatchDeliversOnlyToMatchingTopic(t *testing.T) {
	hub := NewDashboardHub(nil)
	connA := newTestConn(hub, TargetName("class-a", "md5-1"))
	connB := newTestConn(hub, TargetName("class-b", "md5-1"))

	hub.dispatchLocal(AnswerEvent{
		Type:    userAnswersType,
		Target:  TargetName("class-a", "md5-1"),
		Payload: json.RawMessage(`{"userId":7}`),
	})

	frame := recvFrame(t, connA)
	assert.JSONEq(t, `"USER_ANSWERS"`, string(frame["type"]))
	assert.Empty(t, connB.send)
}

func TestOpenConnectionReceivesNothingBeforeSubscribe(t *testing.T) {
	hub := NewDashboardHub(nil)
	conn := newTestConn(hub, "")

	hub.dispatchLocal(AnswerEvent{
		Type:    userAnswersType,
		Target:  TargetName("class-a", "md5-1"),
		Payload: json.RawMessage(`{}`),
	})

	assert.Empty(t, conn.send)
}

func TestSubscribeFixesTopicOnFirstFrameOnly(t *testing.T) {
	hub := NewDashboardHub(nil)
	conn := newTestConn(hub, "")

	hub.subscribe(conn, TargetName("class-a", "md5-1"))
	hub.subscribe(conn, TargetName("class-b", "md5-2"))

	hub.dispatchLocal(AnswerEvent{
		Type:    userAnswersType,
		Target:  TargetName("class-a", "md5-1"),
		Payload: json.RawMessage(`{}`),
	})
	assert.Len(t, conn.send, 1)
}

func TestUnregisterIsIdempotentAndStopsDelivery(t *testing.T) {
	hub := NewDashboardHub(nil)
	conn := newTestConn(hub, TargetName("class-a", "md5-1"))

	hub.unregister(conn)
	hub.unregister(conn)

	// 已关闭连接上的投递是 no-op
	hub.dispatchLocal(AnswerEvent{
		Type:    userAnswersType,
		Target:  TargetName("class-a", "md5-1"),
		Payload: json.RawMessage(`{}`),
	})
}

func TestStalledConnectionIsUnregistered(t *testing.T) {
	hub := NewDashboardHub(nil)
	target := TargetName("class-a", "md5-1")

	healthy := newTestConn(hub, target)
	stalled := &DashboardConn{hub: hub, send: make(chan []byte, 1), start: time.Now()}
	hub.register(stalled)
	hub.subscribe(stalled, target)
	stalled.send <- []byte("x") // 占满发送缓冲

	hub.dispatchLocal(AnswerEvent{
		Type:    userAnswersType,
		Target:  target,
		Payload: json.RawMessage(`{"userId":7}`),
	})

	frame := recvFrame(t, healthy)
	assert.JSONEq(t, `"USER_ANSWERS"`, string(frame["type"]))

	hub.mu.RLock()
	_, registered := hub.conns[stalled]
	hub.mu.RUnlock()
	assert.False(t, registered)

	<-stalled.send
	_, open := <-stalled.send
	assert.False(t, open)
}

func TestPublishAnswersFlowsThroughBroadcast(t *testing.T) {
	hub := NewDashboardHub(nil)
	hub.Run()
	defer hub.Stop()

	conn := newTestConn(hub, TargetName("class-a", "md5-1"))

	history := model.NewChallengeHistory(`isEven(2)`)
	history.MarkIncorrect("false", 10)
	history.MarkCorrect("true", 10)

	hub.PublishAnswers(7, "class-a", "md5-1", true, 2, history, 10)

	frame := recvFrame(t, conn)
	assert.JSONEq(t, `"USER_ANSWERS"`, string(frame["type"]))

	var info DashboardInfo
	require.NoError(t, json.Unmarshal(frame["data"], &info))
	assert.Equal(t, uint(7), info.UserID)
	assert.True(t, info.Complete)
	assert.Equal(t, 2, info.NumCorrect)
	assert.True(t, info.History.Correct)
	// 历史按最近优先排列
	assert.Equal(t, "true<br>false", info.History.Answers)
}

func TestPublishLikeDislike(t *testing.T) {
	hub := NewDashboardHub(nil)
	hub.Run()
	defer hub.Stop()

	conn := newTestConn(hub, TargetName("class-a", "md5-1"))

	hub.PublishLikeDislike(7, "class-a", "md5-1", model.LikeSelected)

	frame := recvFrame(t, conn)
	assert.JSONEq(t, `"LIKE_DISLIKE"`, string(frame["type"]))

	var info LikeDislikeInfo
	require.NoError(t, json.Unmarshal(frame["data"], &info))
	assert.Equal(t, "👍", info.LikeDislike)
}

func TestPerTopicOrderPreserved(t *testing.T) {
	hub := NewDashboardHub(nil)
	hub.Run()
	defer hub.Stop()

	conn := newTestConn(hub, TargetName("class-a", "md5-1"))

	for i := 0; i < 5; i++ {
		history := model.NewChallengeHistory("inv")
		hub.PublishAnswers(uint(i+1), "class-a", "md5-1", false, i, history, 10)
	}

	for i := 0; i < 5; i++ {
		frame := recvFrame(t, conn)
		var info DashboardInfo
		require.NoError(t, json.Unmarshal(frame["data"], &info))
		assert.Equal(t, uint(i+1), info.UserID)
		assert.Equal(t, i, info.NumCorrect)
	}
}
