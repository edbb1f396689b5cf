package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"turnero-padel/backend/internal/api/middleware"
	"turnero-padel/backend/internal/eventbus"
	"turnero-padel/backend/internal/model"
)

// syncRecorder 可在处理过程中并发读取的 ResponseWriter
type syncRecorder struct {
	mu     sync.Mutex
	header http.Header
	body   bytes.Buffer
	status int
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{header: make(http.Header)}
}

func (r *syncRecorder) Header() http.Header { return r.header }

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(p)
}

func (r *syncRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == 0 {
		r.status = code
	}
}

func (r *syncRecorder) Flush() {}

func (r *syncRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("等待超时: %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startStream(t *testing.T, bus *eventbus.Bus, p *model.Principal, tenantID string) (*syncRecorder, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	h := NewEventsHandler(bus, newPerm(), time.Hour)
	r := gin.New()
	r.Use(withPrincipal(p), middleware.Tenant(newMockResolver(), false))
	r.GET("/events", h.Stream)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	if tenantID != "" {
		req.Header.Set(middleware.HeaderTenantID, tenantID)
	}
	w := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(w, req)
	}()
	return w, cancel, done
}

func TestEventsStream_DeliversTenantEvents(t *testing.T) {
	bus := eventbus.New(zap.NewNop())
	w, cancel, done := startStream(t, bus, member(tenantA), tenantA)
	defer cancel()

	waitFor(t, "连接注册", func() bool { return bus.Count() == 1 })

	other := tenantB
	bus.Emit(eventbus.NewEvent(eventbus.SlotsUpdated, &other, map[string]string{"courtId": "cb"}))
	own := tenantA
	bus.Emit(eventbus.NewEvent(eventbus.BookingsUpdated, &own, map[string]string{"bookingId": "b1"}))

	waitFor(t, "收到本租户事件", func() bool { return strings.Contains(w.String(), "event:bookings_updated") })

	body := w.String()
	if !strings.Contains(body, "event:connected") {
		t.Error("连接建立后应先发送 connected 事件")
	}
	if strings.Contains(body, "slots_updated") {
		t.Error("不应收到其他租户的事件")
	}
	if !strings.Contains(body, `"tenantId":"`+tenantA+`"`) {
		t.Error("事件数据应包含 tenantId")
	}

	cancel()
	<-done
	if bus.Count() != 0 {
		t.Errorf("客户端断开后连接应被移除，剩余 %d", bus.Count())
	}
}

func TestEventsStream_BusCloseEndsStream(t *testing.T) {
	bus := eventbus.New(zap.NewNop())
	_, cancel, done := startStream(t, bus, superAdmin(), "")
	defer cancel()

	waitFor(t, "连接注册", func() bool { return bus.Count() == 1 })
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("总线关闭后事件流应结束")
	}
}

func TestEventsStream_ForeignTenantForbidden(t *testing.T) {
	bus := eventbus.New(zap.NewNop())
	h := NewEventsHandler(bus, newPerm(), time.Hour)
	r := newEngine(member(tenantB), false)
	r.GET("/events", h.Stream)

	w := doRequest(r, http.MethodGet, "/events", tenantA, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("期望 403，实际 %d", w.Code)
	}
	if bus.Count() != 0 {
		t.Error("被拒绝的请求不应注册连接")
	}
}
