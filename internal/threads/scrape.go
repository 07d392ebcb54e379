package threads

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/threads-api/internal/metrics"
)

var (
	userIDPattern   = regexp.MustCompile(`"user_id":"(\d+)"`)
	lsdTokenPattern = regexp.MustCompile(`"LSD",\[\],\{"token":"([\w-]+)"\}`)
)

// profilePage is what a user's public page tells us.
type profilePage struct {
	userID string
	token  string
}

func extractUserID(body []byte) string {
	return firstSubmatch(userIDPattern, body)
}

func extractLSDToken(body []byte) string {
	return firstSubmatch(lsdTokenPattern, body)
}

func firstSubmatch(re *regexp.Regexp, body []byte) string {
	m := re.FindSubmatch(body)
	if len(m) < 2 {
		return ""
	}
	return string(m[1])
}

// resolveUser maps a user name to its numeric id by scraping the public
// profile page, promoting to the headless renderer when the plain markup
// does not carry the id.
func (c *Client) resolveUser(ctx context.Context, userName string) (profilePage, error) {
	pageURL := c.cfg.BaseURL + "/@" + url.PathEscape(userName)

	body, err := c.loadPage(ctx, "profile_page", pageURL)
	if err != nil {
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) && upstreamErr.StatusCode == http.StatusNotFound {
			return profilePage{}, fmt.Errorf("%w: %s", ErrUserNotFound, userName)
		}
		return profilePage{}, err
	}
	if id := extractUserID(body); id != "" {
		return profilePage{userID: id, token: extractLSDToken(body)}, nil
	}

	if c.renderer == nil || !c.detect.ShouldPromote(http.StatusOK, body) {
		return profilePage{}, fmt.Errorf("%w: %s", ErrUserNotFound, userName)
	}
	metrics.ObserveHeadlessPromotion()
	c.logger.Debug("promoting profile page to headless render", zap.String("user_name", userName))

	rendered, err := c.renderer.Load(ctx, pageURL)
	if err != nil {
		return profilePage{}, fmt.Errorf("render profile page: %w", err)
	}
	id := extractUserID(rendered)
	if id == "" {
		return profilePage{}, fmt.Errorf("%w: %s", ErrUserNotFound, userName)
	}
	return profilePage{userID: id, token: extractLSDToken(rendered)}, nil
}

// lsdToken returns the configured token or scrapes one from the landing page.
func (c *Client) lsdToken(ctx context.Context) (string, error) {
	if c.cfg.LSDToken != "" {
		return c.cfg.LSDToken, nil
	}
	body, err := c.loadPage(ctx, "landing_page", c.cfg.BaseURL+"/")
	if err != nil {
		return "", err
	}
	token := extractLSDToken(body)
	if token == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}

func (c *Client) loadPage(ctx context.Context, operation, pageURL string) ([]byte, error) {
	res, err := c.exchange(ctx, pageURL, func(collector *colly.Collector) error {
		return collector.Visit(pageURL)
	})
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Err: err}
	}
	if !res.ok() {
		return nil, &UpstreamError{Operation: operation, StatusCode: res.status}
	}
	return res.body, nil
}
