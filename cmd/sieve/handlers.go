package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ytfilter/sieve/filter"
	"github.com/ytfilter/sieve/youtube"

	"github.com/labstack/echo/v4"
)

const maxCommentPages = 20

type GenericError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

type TextInput struct {
	Text *string `json:"text"`
}

type ScoreOutput struct {
	RiskScore float64 `json:"risk_score"`
}

type PolicyInput struct {
	RiskScore    *float64             `json:"risk_score"`
	FilterResult *filter.FilterResult `json:"filter_result"`
	// optional overrides of the configured strictness
	Level     *int     `json:"level,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

type CommentsOutput struct {
	VideoID    string            `json:"video_id"`
	TotalCount int               `json:"total_count"`
	Comments   []youtube.Comment `json:"comments"`
}

type CommentReport struct {
	Author        string        `json:"author"`
	PublishedAt   string        `json:"published_at"`
	Original      string        `json:"original"`
	Processed     string        `json:"processed"`
	Action        filter.Action `json:"action"`
	RiskScore     float64       `json:"risk_score"`
	ViolationTags []string      `json:"violation_tags"`
}

type VideoStats struct {
	TotalComments   int `json:"total_comments"`
	BlockedComments int `json:"blocked_comments"`
	CleanComments   int `json:"clean_comments"`
}

type VideoAnalysisOutput struct {
	VideoInfo map[string]string `json:"video_info"`
	Stats     VideoStats        `json:"stats"`
	Results   []CommentReport   `json:"results"`
}

func badRequest(c echo.Context, name string, err error) error {
	return c.JSON(http.StatusBadRequest, GenericError{
		Error:   name,
		Message: err.Error(),
	})
}

func invalidConfig(c echo.Context, err error) error {
	return badRequest(c, "InvalidConfiguration", err)
}

// reads optional "level" and "threshold" query parameters over the configured
// strictness
func (srv *Server) policyFromQuery(c echo.Context) (filter.PolicyConfig, error) {
	pc := srv.pipeline.Config
	if s := c.QueryParam("level"); s != "" {
		lvl, err := strconv.Atoi(s)
		if err != nil {
			return pc, fmt.Errorf("%w: level is not an integer: %q", filter.ErrInvalidConfig, s)
		}
		pc.Level = lvl
	}
	if s := c.QueryParam("threshold"); s != "" {
		th, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return pc, fmt.Errorf("%w: threshold is not a number: %q", filter.ErrInvalidConfig, s)
		}
		pc.Threshold = th
	}
	return pc, pc.Validate()
}

func parseMaxPages(c echo.Context) (int, error) {
	s := c.QueryParam("max_pages")
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxCommentPages {
		return 0, fmt.Errorf("max_pages must be an integer from 1 to %d", maxCommentPages)
	}
	return n, nil
}

func bindFilterResult(c echo.Context) (*filter.FilterResult, error) {
	var res filter.FilterResult
	if err := c.Bind(&res); err != nil {
		return nil, fmt.Errorf("invalid filter result body: %w", err)
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return &res, nil
}

func (srv *Server) HandleFirstPass(c echo.Context) error {
	var in TextInput
	if err := c.Bind(&in); err != nil || in.Text == nil {
		return badRequest(c, "BadRequest", errors.New("expected JSON body with 'text' field"))
	}
	return c.JSON(http.StatusOK, srv.pipeline.First.Execute(*in.Text))
}

func (srv *Server) HandleSecondPass(c echo.Context) error {
	res, err := bindFilterResult(c)
	if err != nil {
		return badRequest(c, "InvalidFilterResult", err)
	}
	return c.JSON(http.StatusOK, srv.pipeline.Second.Execute(c.Request().Context(), res))
}

func (srv *Server) HandleScore(c echo.Context) error {
	res, err := bindFilterResult(c)
	if err != nil {
		return badRequest(c, "InvalidFilterResult", err)
	}
	return c.JSON(http.StatusOK, ScoreOutput{RiskScore: srv.pipeline.Scorer.Execute(res)})
}

func (srv *Server) HandlePolicy(c echo.Context) error {
	var in PolicyInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "BadRequest", err)
	}
	if in.RiskScore == nil || in.FilterResult == nil {
		return badRequest(c, "BadRequest", errors.New("expected 'risk_score' and 'filter_result' fields"))
	}
	if !(*in.RiskScore >= 0 && *in.RiskScore <= 1) {
		return badRequest(c, "BadRequest", fmt.Errorf("risk_score must be in [0, 1], got %v", *in.RiskScore))
	}
	if err := in.FilterResult.Validate(); err != nil {
		return badRequest(c, "InvalidFilterResult", err)
	}

	pc := srv.pipeline.Config
	if in.Level != nil {
		pc.Level = *in.Level
	}
	if in.Threshold != nil {
		pc.Threshold = *in.Threshold
	}
	d, err := srv.pipeline.Policy.Decide(*in.RiskScore, in.FilterResult, pc.Level, pc.Threshold)
	if err != nil {
		return invalidConfig(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (srv *Server) HandleAnalyzeText(c echo.Context) error {
	var in TextInput
	if err := c.Bind(&in); err != nil || in.Text == nil {
		return badRequest(c, "BadRequest", errors.New("expected JSON body with 'text' field"))
	}
	pc, err := srv.policyFromQuery(c)
	if err != nil {
		return invalidConfig(c, err)
	}
	a, err := srv.pipeline.AnalyzeWith(c.Request().Context(), *in.Text, pc)
	if err != nil {
		return invalidConfig(c, err)
	}
	commentsAnalyzed.WithLabelValues(string(a.Action)).Inc()
	return c.JSON(http.StatusOK, a)
}

// maps video platform errors to HTTP responses
func (srv *Server) youtubeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, youtube.ErrVideoNotFound):
		return c.JSON(http.StatusNotFound, GenericError{Error: "VideoNotFound", Message: err.Error()})
	case errors.Is(err, youtube.ErrQuotaExceeded):
		return c.JSON(http.StatusServiceUnavailable, GenericError{Error: "QuotaExceeded", Message: err.Error()})
	}
	srv.logger.Warn("youtube request failed", "err", err)
	return c.JSON(http.StatusBadGateway, GenericError{Error: "UpstreamError", Message: err.Error()})
}

func (srv *Server) youtubeUnavailable(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, GenericError{
		Error:   "YouTubeUnavailable",
		Message: "YouTube API key is not configured",
	})
}

// fetches comments; a video with comments disabled simply has none
func (srv *Server) fetchComments(c echo.Context, videoID string, maxPages int) ([]youtube.Comment, error) {
	comments, err := srv.yt.GetComments(c.Request().Context(), videoID, maxPages)
	if errors.Is(err, youtube.ErrCommentsDisabled) {
		srv.logger.Info("comments disabled for video", "videoID", videoID)
		return []youtube.Comment{}, nil
	}
	return comments, err
}

func (srv *Server) HandleYouTubeVideo(c echo.Context) error {
	if srv.yt == nil {
		return srv.youtubeUnavailable(c)
	}
	videoID := c.QueryParam("video_id")
	if videoID == "" {
		return badRequest(c, "BadRequest", errors.New("missing 'video_id' query parameter"))
	}
	v, err := srv.yt.GetVideoDetails(c.Request().Context(), videoID)
	if err != nil {
		return srv.youtubeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (srv *Server) HandleYouTubeComments(c echo.Context) error {
	if srv.yt == nil {
		return srv.youtubeUnavailable(c)
	}
	videoID := c.QueryParam("video_id")
	if videoID == "" {
		return badRequest(c, "BadRequest", errors.New("missing 'video_id' query parameter"))
	}
	maxPages, err := parseMaxPages(c)
	if err != nil {
		return badRequest(c, "BadRequest", err)
	}
	comments, err := srv.fetchComments(c, videoID, maxPages)
	if err != nil {
		return srv.youtubeError(c, err)
	}
	return c.JSON(http.StatusOK, CommentsOutput{
		VideoID:    videoID,
		TotalCount: len(comments),
		Comments:   comments,
	})
}

func (srv *Server) HandleAnalyzeYouTube(c echo.Context) error {
	if srv.yt == nil {
		return srv.youtubeUnavailable(c)
	}
	ctx := c.Request().Context()
	videoID := c.QueryParam("video_id")
	if videoID == "" {
		return badRequest(c, "BadRequest", errors.New("missing 'video_id' query parameter"))
	}
	maxPages, err := parseMaxPages(c)
	if err != nil {
		return badRequest(c, "BadRequest", err)
	}
	pc, err := srv.policyFromQuery(c)
	if err != nil {
		return invalidConfig(c, err)
	}

	video, err := srv.yt.GetVideoDetails(ctx, videoID)
	if err != nil {
		videoAnalysisCount.WithLabelValues("video-error").Inc()
		return srv.youtubeError(c, err)
	}
	comments, err := srv.fetchComments(c, videoID, maxPages)
	if err != nil {
		videoAnalysisCount.WithLabelValues("comments-error").Inc()
		return srv.youtubeError(c, err)
	}

	texts := make([]string, len(comments))
	for i, cm := range comments {
		texts[i] = cm.Text
	}
	analyses, err := srv.pipeline.AnalyzeBatchWith(ctx, texts, srv.batchConcurrency, pc)
	if errors.Is(err, filter.ErrInvalidConfig) {
		return invalidConfig(c, err)
	} else if err != nil {
		videoAnalysisCount.WithLabelValues("cancelled").Inc()
		return c.JSON(http.StatusServiceUnavailable, GenericError{Error: "Cancelled", Message: err.Error()})
	}

	out := VideoAnalysisOutput{
		VideoInfo: map[string]string{"title": video.Title, "id": videoID},
		Results:   make([]CommentReport, 0, len(comments)),
	}
	for i, a := range analyses {
		out.Results = append(out.Results, CommentReport{
			Author:        comments[i].Author,
			PublishedAt:   comments[i].PublishedAt,
			Original:      comments[i].Text,
			Processed:     a.ProcessedText,
			Action:        a.Action,
			RiskScore:     a.Score,
			ViolationTags: a.Details.Categories(),
		})
		if a.Action != filter.ActionPass {
			out.Stats.BlockedComments++
		}
		commentsAnalyzed.WithLabelValues(string(a.Action)).Inc()
	}
	out.Stats.TotalComments = len(comments)
	out.Stats.CleanComments = out.Stats.TotalComments - out.Stats.BlockedComments

	videoAnalysisCount.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, out)
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var errorMessage string
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		errorMessage = fmt.Sprintf("%s", he.Message)
	}
	if code >= 500 {
		srv.logger.Warn("sieve-http-internal-error", "err", err)
	}
	c.JSON(code, GenericStatus{Status: "error", Daemon: "sieve", Message: errorMessage})
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "sieve"})
}
