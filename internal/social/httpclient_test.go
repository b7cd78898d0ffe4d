package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streambridge/internal/logger"
)

func testClient(serverURL string) *HTTPClient {
	return NewHTTPClient(ClientConfig{
		Credentials: Credentials{
			ConsumerKey:       "ck",
			ConsumerSecret:    "cs",
			AccessToken:       "at",
			AccessTokenSecret: "ats",
		},
		RESTBaseURL:   serverURL,
		StreamBaseURL: serverURL,
		UserStreamURL: serverURL,
	}, logger.NopLogger())
}

func TestDecodeStatus(t *testing.T) {
	data := []byte(`{
		"id_str": "12345",
		"text": "@bob hello",
		"created_at": "Wed Sep 05 00:37:15 +0000 2012",
		"in_reply_to_screen_name": "bob",
		"in_reply_to_status_id_str": "99",
		"user": {"screen_name": "alice"},
		"entities": {"user_mentions": [{"screen_name": "bob", "indices": [0, 4]}]},
		"lang": "en"
	}`)

	ev, err := decodeStatus(data)
	require.NoError(t, err)
	assert.Equal(t, "12345", ev.ID)
	assert.Equal(t, "alice", ev.AuthorScreenName)
	assert.Equal(t, int64(1346805435), ev.PublishedAt)
	assert.Equal(t, "bob", ev.Title)
	assert.Equal(t, "99", ev.InReplyToStatusID)
	require.Len(t, ev.Mentions, 1)
	assert.Equal(t, Mention{ScreenName: "bob", Start: 0, End: 4}, ev.Mentions[0])
}

func TestDecodeStatusCarriesPayloadVerbatim(t *testing.T) {
	// Fields the bridge never consumes must survive into Raw untouched.
	data := []byte(`{"id_str": "1", "text": "hi", "user": {"screen_name": "alice"}, "lang": "en", "retweet_count": 3}`)

	ev, err := decodeStatus(data)
	require.NoError(t, err)
	assert.Equal(t, "en", ev.Raw["lang"])
	assert.Equal(t, float64(3), ev.Raw["retweet_count"])
	assert.Equal(t, "1", ev.Raw["id_str"])
	assert.Equal(t, map[string]interface{}{"screen_name": "alice"}, ev.Raw["user"])
}

func TestDecodeStatusUnparseableCreatedAt(t *testing.T) {
	ev, err := decodeStatus([]byte(`{"id_str": "1", "created_at": "yesterday-ish"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), ev.PublishedAt)
}

func TestPost(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"status":                r.PostFormValue("status"),
			"in_reply_to_status_id": r.PostFormValue("in_reply_to_status_id"),
		}
		w.Write([]byte(`{"id_str": "555"}`))
	}))
	defer server.Close()

	result, err := testClient(server.URL).Post(context.Background(), PostRequest{
		Text:              "hello",
		InReplyToStatusID: "42",
	})
	require.NoError(t, err)
	assert.Equal(t, "555", result.StatusID)
	assert.Equal(t, "hello", gotForm["status"])
	assert.Equal(t, "42", gotForm["in_reply_to_status_id"])
}

func TestPostErrorCarriesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Fail Whale"))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Post(context.Background(), PostRequest{Text: "hello"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 503, apiErr.StatusCode)
	assert.Equal(t, "503 Fail Whale", apiErr.Error())
	assert.True(t, apiErr.IsRetryable())
}

func TestFetchReplies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/statuses/mentions_timeline.json", r.URL.Path)
		w.Write([]byte(`[
			{"id_str": "1", "text": "hi", "user": {"screen_name": "alice"}, "in_reply_to_screen_name": "bridged"},
			{"id_str": "2", "text": "yo", "user": {"screen_name": "bob"}}
		]`))
	}))
	defer server.Close()

	events, err := testClient(server.URL).FetchReplies(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "alice", events[0].AuthorScreenName)
	assert.Equal(t, "bridged", events[0].Title)
	assert.Equal(t, "2", events[1].ID)
}

func TestFilterStreamRecv(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "gopher,golang", r.PostFormValue("track"))

		// One keep-alive, one non-status control message, then two statuses.
		w.Write([]byte("\n"))
		w.Write([]byte(`{"friends": [1, 2, 3]}` + "\n"))
		w.Write([]byte(`{"id_str": "1", "text": "first", "user": {"screen_name": "alice"}}` + "\n"))
		w.Write([]byte(`{"id_str": "2", "text": "second", "user": {"screen_name": "bob"}}` + "\n"))
	}))
	defer server.Close()

	stream, err := testClient(server.URL).OpenFilterStream(context.Background(), []string{"gopher", "golang"})
	require.NoError(t, err)
	defer stream.Close()

	ev, err := stream.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", ev.ID)

	ev, err = stream.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", ev.ID)

	// Server closed the body; the next read reports a terminal error.
	_, err = stream.Recv(context.Background())
	assert.Error(t, err)
}

func TestOpenStreamRejectedUpgradeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Unauthorized"))
	}))
	defer server.Close()

	_, err := testClient(server.URL).OpenFilterStream(context.Background(), []string{"t"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
	assert.False(t, apiErr.IsRetryable())
}
