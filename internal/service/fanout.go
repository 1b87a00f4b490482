package service

import (
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// fanoutTransport is the single broker that carries events between nodes.
type fanoutTransport int

const (
	fanoutNone fanoutTransport = iota
	fanoutNATS
	fanoutRedis
)

func (t fanoutTransport) String() string {
	switch t {
	case fanoutNATS:
		return "nats"
	case fanoutRedis:
		return "redis"
	default:
		return "none"
	}
}

// pickFanout prefers NATS and falls back to Redis pub/sub. Events published on
// both would reach every remote node twice.
func pickFanout(redisClient *redis.Client, channel string, natsConn *nats.Conn, subject string) fanoutTransport {
	switch {
	case natsConn != nil && subject != "":
		return fanoutNATS
	case redisClient != nil && channel != "":
		return fanoutRedis
	default:
		return fanoutNone
	}
}
