package realtime

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
)

const channelPrefix = "transactions:"

func NewRedis(addr, password string, db int) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	log.Printf("[realtime] redis client created (addr: %s)", addr)
	return rdb
}

// StatusMessage is what websocket clients receive when a transaction changes.
type StatusMessage struct {
	Type        string             `json:"type"`
	Transaction models.Transaction `json:"transaction"`
}

type envelope struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

// Bridge delivers status changes to local websocket clients and, when a
// redis client is set, fans them out to other instances over
// "transactions:<id>" channels.
type Bridge struct {
	Hub      *Hub
	RDB      *redis.Client
	instance string
}

func NewBridge(hub *Hub, rdb *redis.Client) *Bridge {
	return &Bridge{Hub: hub, RDB: rdb, instance: uuid.NewString()}
}

func (b *Bridge) PublishStatus(ctx context.Context, trx models.Transaction) {
	msg, err := json.Marshal(StatusMessage{Type: "transaction_status", Transaction: trx})
	if err != nil {
		log.Printf("[realtime] marshal status: %v", err)
		return
	}
	b.Hub.sendRaw(trx.ID, msg)

	if b.RDB == nil {
		return
	}
	payload, _ := json.Marshal(envelope{Origin: b.instance, Message: msg})
	if err := b.RDB.Publish(ctx, channelPrefix+trx.ID, payload).Err(); err != nil {
		log.Printf("[realtime] redis publish %s: %v", trx.ID, err)
	}
}

// Listen forwards status messages published by other instances to local
// clients until ctx is done.
func (b *Bridge) Listen(ctx context.Context) {
	if b.RDB == nil {
		return
	}
	sub := b.RDB.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			b.deliver(m.Channel, []byte(m.Payload))
		}
	}
}

func (b *Bridge) deliver(channel string, payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		log.Printf("[realtime] bad payload on %s: %v", channel, err)
		return
	}
	if env.Origin == b.instance {
		return
	}
	b.Hub.sendRaw(strings.TrimPrefix(channel, channelPrefix), env.Message)
}
