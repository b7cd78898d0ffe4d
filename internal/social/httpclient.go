package social

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"streambridge/internal/logger"
)

const (
	defaultRESTBaseURL   = "https://api.twitter.com/1.1"
	defaultStreamBaseURL = "https://stream.twitter.com/1.1"
	defaultUserStreamURL = "https://userstream.twitter.com/1.1"

	createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"
)

// ClientConfig configures the HTTP client for one account.
type ClientConfig struct {
	Credentials   Credentials
	RESTBaseURL   string
	StreamBaseURL string
	UserStreamURL string
}

// HTTPClient implements Client against the network's OAuth1-signed REST and
// streaming endpoints.
type HTTPClient struct {
	httpClient    *http.Client
	restBaseURL   string
	streamBaseURL string
	userStreamURL string
	logger        logger.Logger
}

func NewHTTPClient(cfg ClientConfig, log logger.Logger) *HTTPClient {
	oauthConfig := oauth1.NewConfig(cfg.Credentials.ConsumerKey, cfg.Credentials.ConsumerSecret)
	token := oauth1.NewToken(cfg.Credentials.AccessToken, cfg.Credentials.AccessTokenSecret)

	restBase := cfg.RESTBaseURL
	if restBase == "" {
		restBase = defaultRESTBaseURL
	}
	streamBase := cfg.StreamBaseURL
	if streamBase == "" {
		streamBase = defaultStreamBaseURL
	}
	userStreamBase := cfg.UserStreamURL
	if userStreamBase == "" {
		userStreamBase = defaultUserStreamURL
	}

	return &HTTPClient{
		httpClient:    oauthConfig.Client(oauth1.NoContext, token),
		restBaseURL:   restBase,
		streamBaseURL: streamBase,
		userStreamURL: userStreamBase,
		logger:        log,
	}
}

func (c *HTTPClient) OpenFilterStream(ctx context.Context, terms []string) (Stream, error) {
	form := url.Values{}
	form.Set("track", strings.Join(terms, ","))
	return c.openStream(ctx, c.streamBaseURL+"/statuses/filter.json", form)
}

func (c *HTTPClient) OpenUserStream(ctx context.Context) (Stream, error) {
	return c.openStream(ctx, c.userStreamURL+"/user.json", url.Values{})
}

func (c *HTTPClient) openStream(ctx context.Context, endpoint string, form url.Values) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream connect failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	return &httpStream{
		body:    resp.Body,
		scanner: bufio.NewScanner(resp.Body),
		logger:  c.logger,
	}, nil
}

func (c *HTTPClient) FetchReplies(ctx context.Context) ([]RawEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restBaseURL+"/statuses/mentions_timeline.json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build replies request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replies fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var statuses []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		return nil, fmt.Errorf("failed to decode replies: %w", err)
	}

	events := make([]RawEvent, 0, len(statuses))
	for _, data := range statuses {
		ev, err := decodeStatus(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode reply status: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func (c *HTTPClient) Post(ctx context.Context, postReq PostRequest) (PostResult, error) {
	form := url.Values{}
	form.Set("status", postReq.Text)
	if postReq.InReplyToStatusID != "" {
		form.Set("in_reply_to_status_id", postReq.InReplyToStatusID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.restBaseURL+"/statuses/update.json", strings.NewReader(form.Encode()))
	if err != nil {
		return PostResult{}, fmt.Errorf("failed to build post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PostResult{}, fmt.Errorf("post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return PostResult{}, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var posted struct {
		IDStr string `json:"id_str"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&posted); err != nil {
		return PostResult{}, fmt.Errorf("failed to decode post response: %w", err)
	}
	return PostResult{StatusID: posted.IDStr}, nil
}

type httpStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	logger  logger.Logger
}

func (s *httpStream) Recv(ctx context.Context) (RawEvent, error) {
	for {
		if ctx.Err() != nil {
			return RawEvent{}, ctx.Err()
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return RawEvent{}, fmt.Errorf("stream read failed: %w", err)
			}
			return RawEvent{}, io.EOF
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			// Keep-alive newline.
			continue
		}

		ev, err := decodeStatus([]byte(line))
		if err != nil {
			s.logger.Debugw("Skipping undecodable stream line", "error", err)
			continue
		}
		if ev.ID == "" {
			// Non-status stream message (friends list, delete notice, ...).
			continue
		}
		return ev, nil
	}
}

func (s *httpStream) Close() error {
	return s.body.Close()
}

// wireStatus is the subset of the network's status JSON the bridge consumes.
type wireStatus struct {
	IDStr               string `json:"id_str"`
	Text                string `json:"text"`
	CreatedAt           string `json:"created_at"`
	InReplyToScreenName string `json:"in_reply_to_screen_name"`
	InReplyToStatusID   string `json:"in_reply_to_status_id_str"`
	User                struct {
		ScreenName string `json:"screen_name"`
	} `json:"user"`
	Entities struct {
		UserMentions []struct {
			ScreenName string `json:"screen_name"`
			Indices    []int  `json:"indices"`
		} `json:"user_mentions"`
	} `json:"entities"`
}

// decodeStatus parses one status payload twice: the typed subset the bridge
// consumes, and the untyped whole, carried verbatim so downstream metadata
// passthrough sees fields the bridge itself never reads.
func decodeStatus(data []byte) (RawEvent, error) {
	var st wireStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return RawEvent{}, err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawEvent{}, err
	}
	return st.toRawEvent(raw), nil
}

func (st wireStatus) toRawEvent(raw map[string]interface{}) RawEvent {
	var publishedAt int64
	if t, err := time.Parse(createdAtLayout, st.CreatedAt); err == nil {
		publishedAt = t.Unix()
	}

	mentions := make([]Mention, 0, len(st.Entities.UserMentions))
	for _, m := range st.Entities.UserMentions {
		mention := Mention{ScreenName: m.ScreenName}
		if len(m.Indices) == 2 {
			mention.Start = m.Indices[0]
			mention.End = m.Indices[1]
		}
		mentions = append(mentions, mention)
	}

	return RawEvent{
		ID:                  st.IDStr,
		Text:                st.Text,
		AuthorScreenName:    st.User.ScreenName,
		PublishedAt:         publishedAt,
		Title:               st.InReplyToScreenName,
		Mentions:            mentions,
		InReplyToScreenName: st.InReplyToScreenName,
		InReplyToStatusID:   st.InReplyToStatusID,
		Raw:                 raw,
	}
}
