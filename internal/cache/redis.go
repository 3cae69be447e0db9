package cache

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/config"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

const (
	defaultRedisPrefix  = "linkresolve:cache"
	defaultRedisTimeout = 5 * time.Second
)

// Redis implements Store using a minimal RESP client, one connection per
// operation.
type Redis struct {
	addr     string
	password string
	db       int
	prefix   string
	ttl      time.Duration
	timeout  time.Duration
}

// NewRedis creates a Redis-backed cache.
func NewRedis(cfg config.RedisConfig, ttl time.Duration) (*Redis, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("redis host is required")
	}
	port := cfg.Port
	if port == "" {
		port = "6379"
	}
	prefix := cfg.Key
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	timeout := cfg.Timeout.Or(defaultRedisTimeout)
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Redis{
		addr:     net.JoinHostPort(cfg.Host, port),
		password: cfg.Password,
		db:       cfg.DB,
		prefix:   prefix,
		ttl:      ttl,
		timeout:  timeout,
	}, nil
}

func (r *Redis) Close() error {
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) (*types.Resolution, bool, error) {
	var res *types.Resolution
	err := r.withConn(ctx, func(conn *redisConn) error {
		if err := conn.send("GET", r.prefix+":"+key); err != nil {
			return err
		}
		reply, err := conn.read()
		if err != nil {
			return err
		}
		switch v := reply.(type) {
		case nil:
			return nil
		case string:
			var decoded types.Resolution
			if err := json.Unmarshal([]byte(v), &decoded); err != nil {
				return err
			}
			res = &decoded
			return nil
		default:
			return fmt.Errorf("unexpected response type %T", v)
		}
	})
	if err != nil {
		return nil, false, err
	}
	return res, res != nil, nil
}

func (r *Redis) Set(ctx context.Context, key string, res *types.Resolution) error {
	if res == nil {
		return nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	seconds := int(r.ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return r.withConn(ctx, func(conn *redisConn) error {
		if err := conn.send("SETEX", r.prefix+":"+key, strconv.Itoa(seconds), string(data)); err != nil {
			return err
		}
		_, err := conn.read()
		return err
	})
}

func (r *Redis) withConn(ctx context.Context, fn func(*redisConn) error) error {
	conn, err := newRedisConn(ctx, r.addr, r.timeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.initialize(r.password, r.db); err != nil {
		return err
	}
	return fn(conn)
}

type redisConn struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
}

func newRedisConn(ctx context.Context, addr string, timeout time.Duration) (*redisConn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	c, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &redisConn{
		conn:   c,
		reader: bufio.NewReader(c),
		writer: bufio.NewWriter(c),
	}, nil
}

func (c *redisConn) initialize(password string, db int) error {
	if password != "" {
		if err := c.send("AUTH", password); err != nil {
			return err
		}
		if _, err := c.read(); err != nil {
			return err
		}
	}
	if db != 0 {
		if err := c.send("SELECT", strconv.Itoa(db)); err != nil {
			return err
		}
		if _, err := c.read(); err != nil {
			return err
		}
	}
	return nil
}

func (c *redisConn) send(cmd string, args ...string) error {
	if _, err := fmt.Fprintf(c.writer, "*%d\r\n", len(args)+1); err != nil {
		return err
	}
	if err := writeBulk(c.writer, strings.ToUpper(cmd)); err != nil {
		return err
	}
	for _, arg := range args {
		if err := writeBulk(c.writer, arg); err != nil {
			return err
		}
	}
	return c.writer.Flush()
}

func writeBulk(w *bufio.Writer, value string) error {
	if _, err := fmt.Fprintf(w, "$%d\r\n%s\r\n", len(value), value); err != nil {
		return err
	}
	return nil
}

func (c *redisConn) read() (interface{}, error) {
	prefix, err := c.reader.ReadByte()
	if err != nil {
		return nil, err
	}
	switch prefix {
	case '+':
		return readLine(c.reader)
	case '-':
		line, err := readLine(c.reader)
		if err != nil {
			return nil, err
		}
		return nil, errors.New(line)
	case ':':
		line, err := readLine(c.reader)
		if err != nil {
			return nil, err
		}
		return strconv.ParseInt(line, 10, 64)
	case '$':
		line, err := readLine(c.reader)
		if err != nil {
			return nil, err
		}
		length, err := strconv.Atoi(line)
		if err != nil {
			return nil, err
		}
		if length == -1 {
			return nil, nil
		}
		buf := make([]byte, length+2)
		if _, err := io.ReadFull(c.reader, buf); err != nil {
			return nil, err
		}
		return string(buf[:length]), nil
	case '*':
		line, err := readLine(c.reader)
		if err != nil {
			return nil, err
		}
		count, err := strconv.Atoi(line)
		if err != nil {
			return nil, err
		}
		if count == -1 {
			return nil, nil
		}
		items := make([]interface{}, 0, count)
		for i := 0; i < count; i++ {
			item, err := c.read()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unexpected redis prefix %q", prefix)
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func (c *redisConn) Close() error {
	return c.conn.Close()
}
