package mtproto

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"golang.org/x/sync/singleflight"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

// Config holds the MTProto credentials and transfer tuning.
type Config struct {
	AppID    int
	AppHash  string
	BotToken string

	// Workers bounds the concurrent upload.getFile calls of one download.
	Workers int

	// ResolveTimeout bounds the message lookup and the DC dial of Blocks.
	// Block reads are not limited by it.
	ResolveTimeout time.Duration

	// FloodWaitPad is added to every FLOOD_WAIT the server asks for.
	FloodWaitPad time.Duration
	// FloodWaitDefault is used when the wait cannot be read from the error.
	FloodWaitDefault time.Duration

	ReconnectBackoff    time.Duration
	ReconnectMaxBackoff time.Duration
}

// fileGetter is the slice of the API used to read file blocks.
type fileGetter interface {
	UploadGetFile(ctx context.Context, request *tg.UploadGetFileRequest) (tg.UploadFileClass, error)
}

// Client owns the long-lived MTProto connection. It implements domain.BulkSource.
//
// The connection is established by Run in the background; until it is
// authorized Ready reports false and Blocks fails with ErrUpstreamUnavailable.
type Client struct {
	cfg      Config
	sessions session.Storage
	log      *log.Logger

	ready atomic.Bool

	mu     sync.Mutex
	client *telegram.Client
	api    *tg.Client
	thisDC int
	dcs    map[int]*dcConn

	dials   singleflight.Group
	connect func(ctx context.Context, client *telegram.Client, dc int, conns int64) (telegram.CloseInvoker, error)
}

type dcConn struct {
	api    *tg.Client
	closer telegram.CloseInvoker
}

func New(cfg Config, sessions session.Storage, logger *log.Logger) *Client {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = 5 * time.Second
	}
	if cfg.ReconnectMaxBackoff <= 0 {
		cfg.ReconnectMaxBackoff = 5 * time.Minute
	}
	return &Client{cfg: cfg, sessions: sessions, log: logger, connect: dialDC}
}

func dialDC(ctx context.Context, client *telegram.Client, dc int, conns int64) (telegram.CloseInvoker, error) {
	return client.DC(ctx, dc, conns)
}

// Ready reports whether the client is connected and authorized.
func (c *Client) Ready() bool { return c.ready.Load() }

// Run keeps the connection alive until ctx is done.
// A FLOOD_WAIT on login is honoured before the next attempt.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.ReconnectBackoff

	for {
		reached, err := c.runOnce(ctx)
		c.ready.Store(false)
		if ctx.Err() != nil {
			c.log.Println("stopped")
			return nil
		}
		if reached {
			backoff = c.cfg.ReconnectBackoff
		}

		wait := backoff
		if d, ok := tgerr.AsFloodWait(err); ok {
			if d <= 0 {
				d = c.cfg.FloodWaitDefault
			}
			wait = d + c.cfg.FloodWaitPad
			c.log.Printf("rate limited, will retry in %s", wait)
		} else {
			c.log.Printf("connection lost: %v, reconnecting in %s", err, wait)
			backoff = min(backoff*2, c.cfg.ReconnectMaxBackoff)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			c.log.Println("stopped")
			return nil
		case <-t.C:
		}
	}
}

func (c *Client) runOnce(ctx context.Context) (bool, error) {
	client := telegram.NewClient(c.cfg.AppID, c.cfg.AppHash, telegram.Options{
		SessionStorage: c.sessions,
		NoUpdates:      true,
	})

	reached := false
	err := client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			if _, err := client.Auth().Bot(ctx, c.cfg.BotToken); err != nil {
				return fmt.Errorf("bot login: %w", err)
			}
		}

		c.mu.Lock()
		c.client = client
		c.api = client.API()
		c.thisDC = client.Config().ThisDC
		c.dcs = make(map[int]*dcConn)
		c.mu.Unlock()

		c.ready.Store(true)
		reached = true
		c.log.Printf("client initialized, large file downloads enabled (dc %d, %d workers)", c.thisDC, c.cfg.Workers)

		<-ctx.Done()
		c.ready.Store(false)
		c.closeDCs()
		return ctx.Err()
	})
	return reached, err
}

func (c *Client) closeDCs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for dc, conn := range c.dcs {
		if err := conn.closer.Close(); err != nil {
			c.log.Printf("close dc %d: %v", dc, err)
		}
	}
	c.dcs = nil
	c.api = nil
	c.client = nil
}

// invoker returns an API client bound to the data center that stores the file.
// Dialing a new DC happens outside c.mu; concurrent callers for the same DC
// share one dial.
func (c *Client) invoker(ctx context.Context, dc int) (*tg.Client, error) {
	c.mu.Lock()
	api, client, thisDC := c.api, c.client, c.thisDC
	conn, ok := c.dcs[dc]
	c.mu.Unlock()

	if api == nil {
		return nil, errors.New("client is not connected")
	}
	if dc == 0 || dc == thisDC {
		return api, nil
	}
	if ok {
		return conn.api, nil
	}

	v, err, _ := c.dials.Do(strconv.Itoa(dc), func() (any, error) {
		return c.dial(ctx, client, dc)
	})
	if err != nil {
		return nil, err
	}
	return v.(*tg.Client), nil
}

func (c *Client) dial(ctx context.Context, client *telegram.Client, dc int) (*tg.Client, error) {
	c.mu.Lock()
	conn, ok := c.dcs[dc]
	c.mu.Unlock()
	if ok {
		return conn.api, nil
	}

	inv, err := c.connect(ctx, client, dc, int64(c.cfg.Workers))
	if err != nil {
		return nil, fmt.Errorf("connect dc %d: %w", dc, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != client || c.dcs == nil {
		// the connection was reset while dialing
		_ = inv.Close()
		return nil, fmt.Errorf("connect dc %d: client reconnected", dc)
	}
	if conn, ok := c.dcs[dc]; ok {
		_ = inv.Close()
		return conn.api, nil
	}
	conn = &dcConn{api: tg.NewClient(inv), closer: inv}
	c.dcs[dc] = conn
	c.log.Printf("opened connection to dc %d", dc)
	return conn.api, nil
}

func (c *Client) mainAPI() *tg.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.api
}

// Blocks resolves the message at loc and returns its media as ordered blocks.
func (c *Client) Blocks(ctx context.Context, loc domain.SourceLocation, req domain.BlockRequest) (iter.Seq2[[]byte, error], error) {
	api := c.mainAPI()
	if !c.Ready() || api == nil {
		return nil, fmt.Errorf("%w: mtproto client not ready", domain.ErrUpstreamUnavailable)
	}
	if req.BlockSize <= 0 || req.Offset%req.BlockSize != 0 {
		return nil, fmt.Errorf("offset %d is not aligned to block size %d", req.Offset, req.BlockSize)
	}

	media, dcAPI, err := c.resolve(ctx, api, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}

	end := int64(-1)
	if media.size > 0 {
		end = media.size
	}
	if req.Limit > 0 && (end < 0 || req.Offset+req.Limit < end) {
		end = req.Offset + req.Limit
	}

	workers := req.Workers
	if workers <= 0 {
		workers = c.cfg.Workers
	}
	return orderedBlocks(ctx, blockReader(dcAPI, media.location), req.Offset, end, req.BlockSize, workers), nil
}

// resolve finds the media of the message at loc and the API of its DC,
// within cfg.ResolveTimeout.
func (c *Client) resolve(ctx context.Context, api messageGetter, loc domain.SourceLocation) (mediaFile, *tg.Client, error) {
	if c.cfg.ResolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ResolveTimeout)
		defer cancel()
	}

	msg, err := fetchMessage(ctx, api, loc)
	if err != nil {
		return mediaFile{}, nil, err
	}
	media, err := mediaOf(msg)
	if err != nil {
		return mediaFile{}, nil, fmt.Errorf("message %d in %d: %w", loc.MessageID, loc.ChatID, err)
	}
	dcAPI, err := c.invoker(ctx, media.dc)
	if err != nil {
		return mediaFile{}, nil, err
	}
	return media, dcAPI, nil
}

// blockReader reads precise blocks of one file location.
func blockReader(api fileGetter, loc tg.InputFileLocationClass) blockFetcher {
	return func(ctx context.Context, offset int64, limit int) ([]byte, error) {
		res, err := api.UploadGetFile(ctx, &tg.UploadGetFileRequest{
			Precise:  true,
			Location: loc,
			Offset:   offset,
			Limit:    limit,
		})
		if err != nil {
			return nil, fmt.Errorf("upload.getFile at %d: %w", offset, err)
		}
		f, ok := res.(*tg.UploadFile)
		if !ok {
			return nil, fmt.Errorf("upload.getFile at %d: unsupported %T", offset, res)
		}
		return f.Bytes, nil
	}
}
