// Minimal client for the YouTube Data API (v3): video metadata and top-level
// comment threads.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/ytfilter/sieve/cachestore"
	"github.com/ytfilter/sieve/util"

	"github.com/carlmjohnson/versioninfo"
	"github.com/google/go-querystring/query"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// maximum page size allowed by the commentThreads endpoint
	commentsPageSize = 100
	videoCacheName   = "video"
)

var (
	ErrVideoNotFound    = errors.New("video not found")
	ErrCommentsDisabled = errors.New("comments are disabled for video")
	ErrQuotaExceeded    = errors.New("youtube API quota exceeded or key rejected")
	ErrNoAPIKey         = errors.New("youtube API key not configured")
)

type ClientConfig struct {
	APIKey  string
	BaseURL string
	// requests per second; zero means unlimited
	RateLimit float64
	// optional cache for video details
	Cache  cachestore.Store
	Logger *slog.Logger
}

type Client struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Limiter *rate.Limiter
	Cache   cachestore.Store
	Logger  *slog.Logger

	MaxResponseBytes int64
}

func NewClient(config ClientConfig) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var lim *rate.Limiter
	if config.RateLimit > 0 {
		lim = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}
	logger = logger.With("component", "youtube")
	return &Client{
		Client:           util.RobustHTTPClient(logger, 3, 20*time.Second),
		BaseURL:          strings.TrimSuffix(baseURL, "/"),
		APIKey:           config.APIKey,
		Limiter:          lim,
		Cache:            config.Cache,
		Logger:           logger,
		MaxResponseBytes: 8 * 1024 * 1024,
	}
}

// GetVideoDetails fetches title, description, tags, category, and topic
// categories of a video. Returns ErrVideoNotFound if the video doesn't exist
// (or is private).
func (c *Client) GetVideoDetails(ctx context.Context, videoID string) (*VideoDetails, error) {
	if c.Cache != nil {
		if v := c.cachedVideo(ctx, videoID); v != nil {
			return v, nil
		}
	}

	var resp videoListResponse
	err := c.get(ctx, "videos", videoListParams{
		Part: "snippet,topicDetails",
		ID:   videoID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}

	item := resp.Items[0]
	v := &VideoDetails{
		VideoID:         videoID,
		Title:           item.Snippet.Title,
		Description:     item.Snippet.Description,
		Tags:            item.Snippet.Tags,
		CategoryID:      item.Snippet.CategoryID,
		TopicCategories: item.TopicDetails.TopicCategories,
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if v.TopicCategories == nil {
		v.TopicCategories = []string{}
	}

	if c.Cache != nil {
		if err := cachestore.SetJSON(ctx, c.Cache, videoCacheName, videoID, v); err != nil {
			c.Logger.Warn("video cache write failed", "videoID", videoID, "err", err)
		}
	}
	return v, nil
}

func (c *Client) cachedVideo(ctx context.Context, videoID string) *VideoDetails {
	v, err := cachestore.GetJSON[VideoDetails](ctx, c.Cache, videoCacheName, videoID)
	switch {
	case err != nil:
		videoCacheCount.WithLabelValues("error").Inc()
		c.Logger.Warn("video cache read failed", "videoID", videoID, "err", err)
	case v == nil:
		videoCacheCount.WithLabelValues("miss").Inc()
	default:
		videoCacheCount.WithLabelValues("hit").Inc()
	}
	return v
}

// GetComments fetches top-level comments of a video, in relevance order,
// following pagination for at most maxPages pages of up to 100 comments each.
//
// If a later page fails, the error is returned along with the comments
// collected so far.
func (c *Client) GetComments(ctx context.Context, videoID string, maxPages int) ([]Comment, error) {
	if maxPages < 1 {
		maxPages = 1
	}

	comments := []Comment{}
	pageToken := ""
	for page := 0; page < maxPages; page++ {
		var resp commentThreadListResponse
		err := c.get(ctx, "commentThreads", commentThreadListParams{
			Part:       "snippet",
			VideoID:    videoID,
			MaxResults: commentsPageSize,
			Order:      "relevance",
			TextFormat: "plainText",
			PageToken:  pageToken,
		}, &resp)
		if err != nil {
			return comments, err
		}

		for _, item := range resp.Items {
			snip := item.Snippet.TopLevelComment.Snippet
			comments = append(comments, Comment{
				CommentID:   item.ID,
				Text:        snip.TextOriginal,
				Author:      snip.AuthorDisplayName,
				PublishedAt: snip.PublishedAt,
			})
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	c.Logger.Debug("fetched comments", "videoID", videoID, "count", len(comments))
	return comments, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params any, out any) error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	vals, err := query.Values(params)
	if err != nil {
		return err
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/"+endpoint+"?"+vals.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "sieve/"+versioninfo.Short())
	req.Header.Set("X-Goog-Api-Key", c.APIKey)

	start := time.Now()
	resp, err := c.Client.Do(req)
	apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		apiRequestCount.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("youtube %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()
	apiRequestCount.WithLabelValues(endpoint, fmt.Sprint(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.MaxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read youtube %s response: %w", endpoint, err)
	}
	if int64(len(body)) > c.MaxResponseBytes {
		return fmt.Errorf("youtube %s response exceeded limit (%d bytes)", endpoint, c.MaxResponseBytes)
	}

	if resp.StatusCode != http.StatusOK {
		return parseAPIError(endpoint, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse youtube %s response: %w", endpoint, err)
	}
	return nil
}

func parseAPIError(endpoint string, status int, body []byte) error {
	var e errorResponse
	_ = json.Unmarshal(body, &e)
	reasons := []string{}
	for _, sub := range e.Error.Errors {
		reasons = append(reasons, sub.Reason)
	}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w (%s)", ErrVideoNotFound, e.Error.Message)
	case status == http.StatusForbidden && slices.Contains(reasons, "commentsDisabled"):
		return ErrCommentsDisabled
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, e.Error.Message)
	}
	return fmt.Errorf("youtube %s request failed statusCode=%d reasons=%v: %s", endpoint, status, reasons, e.Error.Message)
}
