package threads

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/threads-api/internal/headless/detector"
	"github.com/JakeFAU/threads-api/internal/metrics"
)

// Operation names used in errors, logs and metrics.
const (
	OpUserProfile   = "user_profile"
	OpUserThreads   = "user_threads"
	OpThreadReplies = "thread_replies"
)

const defaultTimeout = 15 * time.Second

// Config controls how the client reaches threads.net.
type Config struct {
	BaseURL     string
	GraphQLPath string
	AppID       string
	UserAgent   string
	// LSDToken skips token scraping when set.
	LSDToken string
	Timeout  time.Duration
	DocIDs   DocIDs
	// Throttle paces outbound requests; nil sends them unpaced.
	Throttle Throttle
	// PromotionThreshold tunes when a profile page counts as client-rendered.
	PromotionThreshold int
}

// DocIDs are the persisted GraphQL query identifiers.
type DocIDs struct {
	UserProfile   string
	UserThreads   string
	ThreadReplies string
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

// ProfileQuery selects a profile by user name or by user id. UserID wins
// when both are set.
type ProfileQuery struct {
	UserName string
	UserID   string
}

// Throttle blocks until a request to rawURL may be sent.
type Throttle interface {
	Wait(ctx context.Context, rawURL string) error
}

// PageLoader returns the markup of a page, e.g. after client-side rendering.
type PageLoader interface {
	Load(ctx context.Context, pageURL string) ([]byte, error)
}

// Client fetches public Threads data.
type Client struct {
	cfg      Config
	base     *colly.Collector
	renderer PageLoader
	detect   *detector.Heuristic
	logger   *zap.Logger
}

// New builds a Client. renderer may be nil to disable headless promotion.
func New(cfg Config, renderer PageLoader, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:      cfg,
		base:     newBaseCollector(cfg),
		renderer: renderer,
		detect:   detector.NewHeuristic(cfg.PromotionThreshold),
		logger:   logger,
	}
}

// UserProfile fetches a user's profile by name or id.
func (c *Client) UserProfile(ctx context.Context, q ProfileQuery) (json.RawMessage, error) {
	return c.observe(OpUserProfile, func() (json.RawMessage, error) {
		switch {
		case q.UserID != "":
			return c.query(ctx, OpUserProfile, c.cfg.DocIDs.UserProfile, "", map[string]string{"userID": q.UserID})
		case q.UserName != "":
			page, err := c.resolveUser(ctx, q.UserName)
			if err != nil {
				return nil, err
			}
			return c.query(ctx, OpUserProfile, c.cfg.DocIDs.UserProfile, page.token, map[string]string{"userID": page.userID})
		default:
			return nil, ErrMissingIdentifier
		}
	})
}

// ThreadReplies fetches a thread and the replies under it.
func (c *Client) ThreadReplies(ctx context.Context, threadID string) (json.RawMessage, error) {
	return c.observe(OpThreadReplies, func() (json.RawMessage, error) {
		if threadID == "" {
			return nil, ErrMissingIdentifier
		}
		return c.query(ctx, OpThreadReplies, c.cfg.DocIDs.ThreadReplies, "", map[string]string{"postID": threadID})
	})
}

// UserProfileThreads fetches the threads posted by a user.
func (c *Client) UserProfileThreads(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.observe(OpUserThreads, func() (json.RawMessage, error) {
		if userID == "" {
			return nil, ErrMissingIdentifier
		}
		return c.query(ctx, OpUserThreads, c.cfg.DocIDs.UserThreads, "", map[string]string{"userID": userID})
	})
}

func (c *Client) observe(operation string, fn func() (json.RawMessage, error)) (json.RawMessage, error) {
	start := time.Now()
	data, err := fn()
	elapsed := time.Since(start)
	metrics.ObserveUpstream(operation, err, elapsed)
	if err != nil {
		c.logger.Debug("threads operation failed",
			zap.String("operation", operation),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	}
	return data, err
}
