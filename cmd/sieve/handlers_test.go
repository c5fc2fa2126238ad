package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ytfilter/sieve/classifier"
	"github.com/ytfilter/sieve/filter"
	"github.com/ytfilter/sieve/filter/dictstore"
	"github.com/ytfilter/sieve/youtube"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, yt *youtube.Client) *Server {
	dict := dictstore.NewStore(
		[]string{"유튜버"},
		[]string{"광고"},
		map[string][]string{"profanity": {"씨발", "개새끼", "병신", "바보"}},
	)
	pipeline, err := filter.NewPipeline(filter.PipelineConfig{
		Dictionary:        dict,
		Tokenizer:         filter.NewRuleTokenizer(dict),
		Classifier:        classifier.Noop{},
		Rules:             classifier.DefaultRules(),
		ClassifierTimeout: time.Second,
		Policy:            filter.DefaultPolicyConfig(),
	})
	require.NoError(t, err)

	srv, err := NewServer(Config{
		Pipeline:          pipeline,
		YouTube:           yt,
		BatchConcurrency:  2,
		MetricsRegisterer: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	return srv
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(t, nil)
	rec := doRequest(srv, http.MethodGet, "/_health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"daemon":"sieve"`)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestModuleEndpoints(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t, nil)

	rec := doRequest(srv, http.MethodPost, "/api/modules/first-pass", `{"text": "씨발 개새끼 너는 진짜 병신 이야"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var fp filter.FilterResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fp))
	assert.Equal(filter.StatusFilteredFirstPass, fp.Status)
	assert.Equal("__F__ __F__ 너는 진짜 __F__ 이야", fp.MaskedText)

	rec = doRequest(srv, http.MethodPost, "/api/modules/second-pass", rec.Body.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var sp filter.FilterResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sp))
	assert.Equal(fp, sp)

	rec = doRequest(srv, http.MethodPost, "/api/modules/score", rec.Body.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(`{"risk_score": 0.75}`, rec.Body.String())

	score := 0.75
	level := 5
	raw, err := json.Marshal(PolicyInput{RiskScore: &score, FilterResult: &sp, Level: &level})
	require.NoError(t, err)
	rec = doRequest(srv, http.MethodPost, "/api/modules/policy", string(raw))
	require.Equal(t, http.StatusOK, rec.Code)
	var d filter.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(filter.ActionPermanentDelete, d.Action)
	assert.Equal(filter.PlaceholderDeleted, d.RenderedText)

	// configured default level (3) applies without an override
	raw, err = json.Marshal(PolicyInput{RiskScore: &score, FilterResult: &sp})
	require.NoError(t, err)
	rec = doRequest(srv, http.MethodPost, "/api/modules/policy", string(raw))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `"action":"AUTO_HIDE"`)
}

func TestModuleEndpointErrors(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t, nil)

	rec := doRequest(srv, http.MethodPost, "/api/modules/first-pass", `{"txt": "hi"}`)
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/modules/first-pass", `not json`)
	assert.Equal(http.StatusBadRequest, rec.Code)

	// filtered status without detections
	rec = doRequest(srv, http.MethodPost, "/api/modules/score", `{"original_text": "x", "status": "FILTERED_FIRST_PASS", "detected_items": [], "masked_text": "x"}`)
	assert.Equal(http.StatusBadRequest, rec.Code)
	assert.Contains(rec.Body.String(), "InvalidFilterResult")

	rec = doRequest(srv, http.MethodPost, "/api/modules/second-pass", `{"original_text": "x", "status": "NOPE", "masked_text": "x"}`)
	assert.Equal(http.StatusBadRequest, rec.Code)

	passed := `{"original_text": "hi", "status": "PASSED", "detected_items": [], "masked_text": "hi"}`
	rec = doRequest(srv, http.MethodPost, "/api/modules/policy", `{"risk_score": 0.5, "filter_result": `+passed+`, "level": 9}`)
	assert.Equal(http.StatusBadRequest, rec.Code)
	assert.Contains(rec.Body.String(), "InvalidConfiguration")

	rec = doRequest(srv, http.MethodPost, "/api/modules/policy", `{"risk_score": 0.5, "filter_result": `+passed+`, "threshold": 2}`)
	assert.Equal(http.StatusBadRequest, rec.Code)
	assert.Contains(rec.Body.String(), "InvalidConfiguration")

	rec = doRequest(srv, http.MethodPost, "/api/modules/policy", `{"risk_score": 1.5, "filter_result": `+passed+`}`)
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/modules/policy", `{"filter_result": `+passed+`}`)
	assert.Equal(http.StatusBadRequest, rec.Code)
}

func TestAnalyzeText(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t, nil)

	rec := doRequest(srv, http.MethodPost, "/api/workflow/analyze-text", `{"text": "너 진짜 바보야"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var a filter.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(filter.ActionPass, a.Action)
	assert.Equal(0.4, a.Score)
	assert.Equal("너 진짜 바보야", a.ProcessedText)

	rec = doRequest(srv, http.MethodPost, "/api/workflow/analyze-text?level=1&threshold=0.4", `{"text": "너 진짜 바보야"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(filter.ActionMasking, a.Action)
	assert.Equal("너 진짜 **야", a.ProcessedText)
	assert.Equal([]string{"SYSTEM_KEYWORD"}, a.Details.Categories())

	rec = doRequest(srv, http.MethodPost, "/api/workflow/analyze-text?level=0", `{"text": "hi"}`)
	assert.Equal(http.StatusBadRequest, rec.Code)
	assert.Contains(rec.Body.String(), "InvalidConfiguration")

	rec = doRequest(srv, http.MethodPost, "/api/workflow/analyze-text?level=high", `{"text": "hi"}`)
	assert.Equal(http.StatusBadRequest, rec.Code)
}

func testYouTube(t *testing.T) *youtube.Client {
	mux := http.NewServeMux()
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id") {
		case "vid", "quiet":
			w.Write([]byte(`{"items": [{"id": "vid", "snippet": {"title": "테스트 영상", "categoryId": "22"}}]}`))
		case "quota":
			w.WriteHeader(403)
			w.Write([]byte(`{"error": {"code": 403, "message": "quota", "errors": [{"reason": "quotaExceeded"}]}}`))
		default:
			w.Write([]byte(`{"items": []}`))
		}
	})
	mux.HandleFunc("/commentThreads", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("videoId") == "quiet" {
			w.WriteHeader(403)
			w.Write([]byte(`{"error": {"code": 403, "message": "disabled", "errors": [{"reason": "commentsDisabled"}]}}`))
			return
		}
		w.Write([]byte(`{"items": [
			{"id": "c1", "snippet": {"topLevelComment": {"snippet": {"textOriginal": "좋은 영상 감사합니다", "authorDisplayName": "@fan", "publishedAt": "2024-01-01T00:00:00Z"}}}},
			{"id": "c2", "snippet": {"topLevelComment": {"snippet": {"textOriginal": "씨발 개새끼 너는 진짜 병신 이야", "authorDisplayName": "@troll", "publishedAt": "2024-01-02T00:00:00Z"}}}},
			{"id": "c3", "snippet": {"topLevelComment": {"snippet": {"textOriginal": "이거 광고 입니다 사세요", "authorDisplayName": "@spam", "publishedAt": "2024-01-03T00:00:00Z"}}}}
		]}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	yt := youtube.NewClient(youtube.ClientConfig{APIKey: "test-key", BaseURL: ts.URL})
	yt.Client = ts.Client()
	return yt
}

func TestYouTubeEndpoints(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t, testYouTube(t))

	rec := doRequest(srv, http.MethodGet, "/api/modules/youtube/video?video_id=vid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `"title":"테스트 영상"`)

	rec = doRequest(srv, http.MethodGet, "/api/modules/youtube/video?video_id=missing", "")
	assert.Equal(http.StatusNotFound, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/modules/youtube/video?video_id=quota", "")
	assert.Equal(http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/modules/youtube/video", "")
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/modules/youtube/comments?video_id=vid&max_pages=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var comments CommentsOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comments))
	assert.Equal("vid", comments.VideoID)
	assert.Equal(3, comments.TotalCount)
	assert.Equal("@fan", comments.Comments[0].Author)

	rec = doRequest(srv, http.MethodGet, "/api/modules/youtube/comments?video_id=quiet", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `"total_count":0`)

	rec = doRequest(srv, http.MethodGet, "/api/modules/youtube/comments?video_id=vid&max_pages=0", "")
	assert.Equal(http.StatusBadRequest, rec.Code)
}

func TestAnalyzeYouTube(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t, testYouTube(t))

	rec := doRequest(srv, http.MethodPost, "/api/workflow/analyze-youtube?video_id=vid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out VideoAnalysisOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	assert.Equal(map[string]string{"title": "테스트 영상", "id": "vid"}, out.VideoInfo)
	assert.Equal(VideoStats{TotalComments: 3, BlockedComments: 2, CleanComments: 1}, out.Stats)
	require.Len(t, out.Results, 3)

	assert.Equal(filter.ActionPass, out.Results[0].Action)
	assert.Equal("좋은 영상 감사합니다", out.Results[0].Processed)
	assert.Empty(out.Results[0].ViolationTags)

	assert.Equal("@troll", out.Results[1].Author)
	assert.Equal(filter.ActionAutoHide, out.Results[1].Action)
	assert.Equal(0.75, out.Results[1].RiskScore)
	assert.Equal([]string{"SYSTEM_KEYWORD", "SYSTEM_KEYWORD", "SYSTEM_KEYWORD"}, out.Results[1].ViolationTags)

	assert.Equal(filter.ActionAutoHide, out.Results[2].Action)
	assert.Equal([]string{"USER_BLACKLIST"}, out.Results[2].ViolationTags)

	// per-request strictness
	rec = doRequest(srv, http.MethodPost, "/api/workflow/analyze-youtube?video_id=vid&level=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(filter.ActionPermanentDelete, out.Results[1].Action)

	rec = doRequest(srv, http.MethodPost, "/api/workflow/analyze-youtube?video_id=missing", "")
	assert.Equal(http.StatusNotFound, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/workflow/analyze-youtube?video_id=vid&level=6", "")
	assert.Equal(http.StatusBadRequest, rec.Code)
}

func TestYouTubeUnavailable(t *testing.T) {
	srv := testServer(t, nil)

	for _, path := range []string{"/api/modules/youtube/video?video_id=x", "/api/modules/youtube/comments?video_id=x"} {
		rec := doRequest(srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
	rec := doRequest(srv, http.MethodPost, "/api/workflow/analyze-youtube?video_id=x", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
