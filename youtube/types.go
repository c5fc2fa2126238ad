package youtube

// VideoDetails is the subset of video metadata used for moderation context.
type VideoDetails struct {
	VideoID         string   `json:"video_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags"`
	CategoryID      string   `json:"category_id"`
	TopicCategories []string `json:"topic_categories"`
}

// Comment is a top-level comment on a video. PublishedAt is passed through as
// returned by the API (RFC 3339).
type Comment struct {
	CommentID   string `json:"comment_id"`
	Text        string `json:"text"`
	Author      string `json:"author"`
	PublishedAt string `json:"published_at"`
}

// API wire types

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Tags        []string `json:"tags"`
			CategoryID  string   `json:"categoryId"`
		} `json:"snippet"`
		TopicDetails struct {
			TopicCategories []string `json:"topicCategories"`
		} `json:"topicDetails"`
	} `json:"items"`
}

type commentThreadListResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID      string `json:"id"`
		Snippet struct {
			TopLevelComment struct {
				Snippet struct {
					TextOriginal      string `json:"textOriginal"`
					AuthorDisplayName string `json:"authorDisplayName"`
					PublishedAt       string `json:"publishedAt"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// query parameters, encoded with go-querystring. The API key is sent as a
// header, so it never appears in logged URLs.

type videoListParams struct {
	Part string `url:"part"`
	ID   string `url:"id"`
}

type commentThreadListParams struct {
	Part       string `url:"part"`
	VideoID    string `url:"videoId"`
	MaxResults int    `url:"maxResults"`
	Order      string `url:"order"`
	TextFormat string `url:"textFormat"`
	PageToken  string `url:"pageToken,omitempty"`
}
