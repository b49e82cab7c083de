// Package client maintains the lazy connection to the source database
// and exposes the dictionary queries the reader depends on.
package client

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/godror/godror"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const reconnectDelay = 5 * time.Second

// Config carries connection parameters. With Remote unset, the driver
// attaches to a local instance through ORACLE_SID.
type Config struct {
	Host           string
	Port           string
	Username       string
	Password       string
	Sid            string
	Remote         bool
	ConnectTimeout time.Duration
}

// Client wraps a *sql.DB with lazy dialing, an instance cache and an
// unbounded 5-second reconnect loop. All calls run on the scheduler's
// thread; the cache exists so repeated ensure calls during a long run
// reuse the one dialed instance.
type Client struct {
	cfg   Config
	cache *cache.Cache
	db    *sql.DB
	log   *logrus.Entry
}

func New(cfg Config) *Client {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	return &Client{
		cfg:   cfg,
		cache: cache.New(24*time.Hour, 48*time.Hour),
		log:   logrus.WithField("component", "client"),
	}
}

func (c *Client) cacheKey() string {
	return fmt.Sprintf("client-oracle-%s-%s", c.cfg.Host, c.cfg.Sid)
}

func (c *Client) connectString() string {
	if c.cfg.Remote {
		return fmt.Sprintf("user=%q password=%q connectString=\"%s:%s/%s\" timezone=\"+00:00\"",
			c.cfg.Username, c.cfg.Password, c.cfg.Host, c.cfg.Port, c.cfg.Sid)
	}
	os.Setenv("ORACLE_SID", c.cfg.Sid)
	return fmt.Sprintf("%s/%s", c.cfg.Username, c.cfg.Password)
}

func (c *Client) dial(ctx context.Context) error {
	if cached, found := c.cache.Get(c.cacheKey()); found {
		c.db = cached.(*sql.DB)
		return nil
	}

	db, err := sql.Open("godror", c.connectString())
	if err != nil {
		return fmt.Errorf("connection create failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("connection failed: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	c.cache.Set(c.cacheKey(), db, cache.DefaultExpiration)
	c.db = db
	return nil
}

// Ensure makes the connection usable. With reconnect set it retries
// every 5 seconds until it succeeds or the context is cancelled;
// otherwise a single failed attempt is returned to the caller.
func (c *Client) Ensure(ctx context.Context, reconnect bool) error {
	for {
		if c.db == nil {
			c.log.Infof("connecting to database %s", c.cfg.Sid)
			if err := c.dial(ctx); err != nil {
				c.log.Errorf("%v", err)
				if !reconnect {
					return err
				}
			}
		}
		if c.db != nil {
			return nil
		}

		c.log.Error("cannot connect to database, retry in 5 sec")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// drop forgets a connection after a query failure so the next ensure
// dials fresh.
func (c *Client) drop() {
	if c.db != nil {
		c.db.Close()
	}
	c.db = nil
	c.cache.Delete(c.cacheKey())
}

// query runs one dictionary statement with the driver's fetch sizing.
func (c *Client) query(ctx context.Context, stmt string, args ...interface{}) (*sql.Rows, error) {
	if err := c.Ensure(ctx, true); err != nil {
		return nil, err
	}
	all := append(args, godror.FetchArraySize(1024))
	rows, err := c.db.QueryContext(ctx, stmt, all...)
	if err != nil {
		c.drop()
		return nil, err
	}
	return rows, nil
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.cache.Delete(c.cacheKey())
	return err
}
