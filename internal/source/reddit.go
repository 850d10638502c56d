package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/codes"
	"github.com/shiftwatch/shiftwatch/internal/model"
)

const (
	redditBaseURL      = "https://www.reddit.com"
	redditPostLimit    = 25
	redditCommentLimit = 10
)

// RedditSource scans one subreddit's newest posts for codes through the
// public JSON listing endpoints. Codes are extracted from post title and
// body; the first comments of a matching post are folded into the stored
// context, since reward details often land there.
type RedditSource struct {
	sub          string
	baseURL      string
	client       *http.Client
	contextLimit int
	postLimit    int
	commentLimit int
}

// NewRedditSource creates a source for one subreddit.
func NewRedditSource(sub string, timeout time.Duration, contextLimit int) *RedditSource {
	return &RedditSource{
		sub:          sub,
		baseURL:      redditBaseURL,
		client:       &http.Client{Timeout: timeout},
		contextLimit: contextLimit,
		postLimit:    redditPostLimit,
		commentLimit: redditCommentLimit,
	}
}

// Name returns the source identifier stored on discovered codes.
func (s *RedditSource) Name() string {
	return "Reddit:r/" + s.sub
}

// redditListing is the subset of the listing payload we read. The same
// shape serves posts and comments.
type redditListing struct {
	Data struct {
		Children []struct {
			Data redditThing `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditThing struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Selftext string `json:"selftext"`
	Body     string `json:"body"`
}

// Fetch scans the newest posts of the subreddit and yields one candidate
// per code found in a post's title or body. A failed comment fetch only
// costs the extra context, never the post's codes.
func (s *RedditSource) Fetch(ctx context.Context) ([]model.RawCandidate, error) {
	url := fmt.Sprintf("%s/r/%s/new.json?limit=%d", s.baseURL, s.sub, s.postLimit)
	var listing redditListing
	if err := s.getJSON(ctx, url, &listing); err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", s.sub, err)
	}

	var candidates []model.RawCandidate
	for _, child := range listing.Data.Children {
		post := child.Data
		blob := post.Title + "\n\n" + post.Selftext
		found := codes.Extract(blob)
		if len(found) == 0 {
			continue
		}

		if comments, err := s.fetchComments(ctx, post.ID); err == nil {
			for _, body := range comments {
				blob += "\n" + body
			}
		}

		srcTag := fmt.Sprintf("Reddit:r/%s (%s)", s.sub, post.ID)
		excerpt := truncate(blob, s.contextLimit)
		for _, code := range found {
			candidates = append(candidates, model.RawCandidate{
				RawCode: code,
				Source:  srcTag,
				Context: excerpt,
			})
		}
	}
	return candidates, nil
}

// fetchComments returns the bodies of a post's first comments. The
// endpoint responds with a pair of listings: the post itself, then its
// comment tree.
func (s *RedditSource) fetchComments(ctx context.Context, postID string) ([]string, error) {
	url := fmt.Sprintf("%s/r/%s/comments/%s.json?limit=%d", s.baseURL, s.sub, postID, s.commentLimit)
	var listings []redditListing
	if err := s.getJSON(ctx, url, &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, fmt.Errorf("unexpected comments payload for post %s", postID)
	}

	var bodies []string
	for _, child := range listings[1].Data.Children {
		if body := strings.TrimSpace(child.Data.Body); body != "" {
			bodies = append(bodies, body)
		}
		if len(bodies) >= s.commentLimit {
			break
		}
	}
	return bodies, nil
}

func (s *RedditSource) getJSON(ctx context.Context, url string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch listing: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read listing: %w", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode listing: %w", err)
	}
	return nil
}
