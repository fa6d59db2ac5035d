// Package queue passes segmentation requests from the web api to the
// workers through Redis and keeps the results there for a while.
package queue

import (
	"encoding/json"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
)

const (
	RequestList  = "segmentme"
	ResultPrefix = "segment"
)

func NewPool(address string, maxConnections int) *redis.Pool {
	return redis.NewPool(func() (redis.Conn, error) {
		c, err := redis.Dial("tcp", address)

		if err != nil {
			return nil, err
		}

		return c, err
	}, maxConnections)
}

type RedisQueue struct {
	pool *redis.Pool
	ttl  time.Duration
}

func NewRedisQueue(pool *redis.Pool, ttl time.Duration) *RedisQueue {
	return &RedisQueue{pool: pool, ttl: ttl}
}

// Push appends a request to the request list.
func (q *RedisQueue) Push(req datastructures.SegmentationRequest) error {
	serialized, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "couldn't marshal request")
	}

	redisConn := q.pool.Get()
	defer redisConn.Close()

	_, err = redisConn.Do("RPUSH", RequestList, serialized)
	return errors.Wrap(err, "couldn't push request")
}

// Pop takes the oldest request. It returns nil, nil when the list is empty.
func (q *RedisQueue) Pop() (*datastructures.SegmentationRequest, error) {
	redisConn := q.pool.Get()
	defer redisConn.Close()

	data, err := redis.Bytes(redisConn.Do("LPOP", RequestList))
	if err == redis.ErrNil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "couldn't pop request")
	}

	var req datastructures.SegmentationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Debug("[Queue] Couldn't unmarshal: ", err.Error())
		return nil, errors.Wrap(err, "couldn't unmarshal request")
	}
	return &req, nil
}

// StoreResult keeps res under its uuid until the ttl runs out.
func (q *RedisQueue) StoreResult(res datastructures.SegmentationResult) error {
	serialized, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, "couldn't marshal result")
	}

	redisConn := q.pool.Get()
	defer redisConn.Close()

	_, err = redisConn.Do("SETEX", ResultPrefix+res.Uuid, int(q.ttl/time.Second), serialized)
	return errors.Wrap(err, "couldn't store result")
}

// Result returns the stored result for uuid, or nil, nil if there is none
// (yet).
func (q *RedisQueue) Result(uuid string) (*datastructures.SegmentationResult, error) {
	redisConn := q.pool.Get()
	defer redisConn.Close()

	data, err := redis.Bytes(redisConn.Do("GET", ResultPrefix+uuid))
	if err == redis.ErrNil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get result")
	}

	var res datastructures.SegmentationResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrap(err, "couldn't unmarshal result")
	}
	return &res, nil
}
