package social

import "context"

// Mention is a structured reference to another account embedded in a post's
// text. Start/End are rune offsets into the text.
type Mention struct {
	ScreenName string `json:"screen_name"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// RawEvent is one post as delivered by the network client. Populated at the
// client boundary and immutable afterwards.
type RawEvent struct {
	ID                  string                 `json:"id"`
	Text                string                 `json:"text"`
	AuthorScreenName    string                 `json:"author_screen_name"`
	PublishedAt         int64                  `json:"published_at"`
	Title               string                 `json:"title,omitempty"`
	Mentions            []Mention              `json:"mentions,omitempty"`
	InReplyToScreenName string                 `json:"in_reply_to_screen_name,omitempty"`
	InReplyToStatusID   string                 `json:"in_reply_to_status_id,omitempty"`
	Raw                 map[string]interface{} `json:"raw,omitempty"`
}

// PostRequest is an outbound status update.
type PostRequest struct {
	Text              string
	InReplyToStatusID string
}

type PostResult struct {
	StatusID string
}

// Stream is one open subscription connection. Recv blocks until the next
// event arrives, the stream fails, or ctx is canceled. Close releases the
// underlying connection and unblocks any pending Recv.
type Stream interface {
	Recv(ctx context.Context) (RawEvent, error)
	Close() error
}

// Client is the capability the bridge needs from the social network.
// HTTPClient is the production implementation; tests substitute fakes.
// Post is safe for concurrent use.
type Client interface {
	OpenFilterStream(ctx context.Context, terms []string) (Stream, error)
	OpenUserStream(ctx context.Context) (Stream, error)
	FetchReplies(ctx context.Context) ([]RawEvent, error)
	Post(ctx context.Context, req PostRequest) (PostResult, error)
}

// Credentials carries the four OAuth-style secrets for one account.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}
