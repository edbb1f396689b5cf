package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"turnero-padel/backend/pkg/mq"
)

const (
	headerOrigin   = "x-origin"
	relayQueueSize = 256
	publishTimeout = 5 * time.Second
)

// ErrDeliveriesClosed 订阅通道被关闭（连接断开或 broker 重启）
var ErrDeliveriesClosed = errors.New("事件中继订阅通道已关闭")

// jsonPublisher 由 mq.Publisher 实现
type jsonPublisher interface {
	PublishJSON(ctx context.Context, key string, v any, headers amqp.Table) error
}

// deliverySource 由 mq.Consumer 实现
type deliverySource interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

// Relay 通过 RabbitMQ 在多个实例之间镜像事件
//
// 每个实例拥有唯一 origin；收到自己发出的消息时忽略，避免重复投递。
type Relay struct {
	bus      *Bus
	pub      jsonPublisher
	sub      deliverySource
	origin   string
	outbound chan Event
	logger   *zap.Logger
}

// NewRelay 创建中继并挂载到 bus
func NewRelay(bus *Bus, pub *mq.Publisher, sub *mq.Consumer, logger *zap.Logger) *Relay {
	return newRelay(bus, pub, sub, logger)
}

func newRelay(bus *Bus, pub jsonPublisher, sub deliverySource, logger *zap.Logger) *Relay {
	r := &Relay{
		bus:      bus,
		pub:      pub,
		sub:      sub,
		origin:   uuid.NewString(),
		outbound: make(chan Event, relayQueueSize),
		logger:   logger,
	}
	bus.SetPublisher(r)
	return r
}

// Publish 入队等待发送，队列满时丢弃（本地连接已收到）
func (r *Relay) Publish(e Event) {
	select {
	case r.outbound <- e:
	default:
		r.logger.Warn("事件中继队列已满，丢弃", zap.String("event", string(e.Type)))
	}
}

// Run 启动发送与接收循环，阻塞到 ctx 结束或订阅通道关闭
//
// 返回后中继从 bus 上摘除，调用方可以重新连接并创建新的中继。
func (r *Relay) Run(ctx context.Context) error {
	defer r.bus.SetPublisher(nil)

	deliveries, err := r.sub.Deliveries(ctx)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.publishLoop(runCtx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				r.logger.Warn("事件中继订阅通道关闭，跨实例推送中断")
				return ErrDeliveriesClosed
			}
			r.handle(d)
		}
	}
}

func (r *Relay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-r.outbound:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			err := r.pub.PublishJSON(pctx, string(e.Type), e, amqp.Table{headerOrigin: r.origin})
			cancel()
			if err != nil {
				r.logger.Warn("事件中继发送失败", zap.String("event", string(e.Type)), zap.Error(err))
			}
		}
	}
}

func (r *Relay) handle(d amqp.Delivery) {
	if origin, _ := d.Headers[headerOrigin].(string); origin == r.origin {
		return
	}
	var e Event
	if err := json.Unmarshal(d.Body, &e); err != nil {
		r.logger.Warn("事件中继消息解码失败", zap.Error(err))
		return
	}
	r.bus.Deliver(e)
}

// RoutingKeys 中继订阅的全部事件类型
func RoutingKeys() []string {
	return []string{string(CourtsUpdated), string(BookingsUpdated), string(SlotsUpdated), string(AdminChange)}
}
