package practicum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	logx "hwbot/pkg/logx"
)

// DefaultEndpoint is the homework status API.
const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

const maxBodyBytes = 4 << 20

type Config struct {
	Endpoint string
	Token    string
	// Timeout bounds a single request. 0 means 30s.
	Timeout time.Duration
}

// Client fetches homework statuses. It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func NewClient(cfg Config, hc *http.Client, log logx.Logger) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, http: hc, log: log}
}

// FetchStatus asks for homework updates since the given unix timestamp.
//
// Failures are tagged: KindConnection for transport errors, KindStatusCode for
// non-200 answers, KindResponse for bodies that are not JSON and KindShape for
// JSON that does not carry a "homeworks" list.
func (c *Client) FetchStatus(ctx context.Context, since int64) (Response, error) {
	const op = "fetch status"

	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return Response{}, newError(KindConnection, op, fmt.Errorf("bad endpoint: %w", err))
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(since, 10))
	u.RawQuery = q.Encode()

	cctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return Response{}, newError(KindConnection, op, err)
	}
	req.Header.Set("Authorization", "OAuth "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, newError(KindConnection, op, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api answered",
		logx.Int("status", resp.StatusCode),
		logx.Int64("from_date", since),
		logx.Duration("took", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return Response{}, &Error{Kind: KindStatusCode, Op: op, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Response{}, newError(KindConnection, op, err)
		}
		return Response{}, newError(KindResponse, op, err)
	}
	return DecodeResponse(body)
}
