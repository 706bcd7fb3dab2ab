package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/magabrotheeeer/subscription-sync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	authCalls int
	listCalls int
	pages     []SubscriptionPage
	failList  bool
}

func (f *fakeProvider) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.authCalls++
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.FormValue("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-123"})
	})
	mux.HandleFunc("/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		if f.failList {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		idx := f.listCalls
		f.listCalls++
		require.Less(t, idx, len(f.pages))
		if idx == 0 {
			require.Empty(t, r.URL.Query().Get("page_token"))
		} else {
			require.Equal(t, f.pages[idx-1].PageInfo.NextPageToken, r.URL.Query().Get("page_token"))
		}
		_ = json.NewEncoder(w).Encode(f.pages[idx])
	})
	return httptest.NewServer(mux)
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(config.Billing{
		TokenURL:          srv.URL + "/oauth/token",
		APIURL:            srv.URL,
		ClientID:          "id",
		ClientSecret:      "secret",
		MaxResults:        50,
		RequestsPerSecond: 1000,
		RequestTimeout:    5 * time.Second,
	})
}

func record(code string) SubscriptionRecord {
	return SubscriptionRecord{SubscriberCode: code, Status: StatusActive}
}

func TestPagerTraversesAllPages(t *testing.T) {
	provider := &fakeProvider{pages: []SubscriptionPage{
		{Items: []SubscriptionRecord{record("a"), record("b")}, PageInfo: PageInfo{NextPageToken: "p2"}},
		{Items: []SubscriptionRecord{record("c"), record("d")}, PageInfo: PageInfo{NextPageToken: "p3"}},
		{Items: []SubscriptionRecord{record("e"), record("f")}},
	}}
	srv := provider.server(t)
	defer srv.Close()

	pager := newTestClient(srv).Subscriptions(Filter{SubscriberEmail: "a@x.com"})
	got, err := Collect(context.Background(), pager)

	require.NoError(t, err)
	require.Len(t, got, 6)
	codes := make([]string, 0, len(got))
	for _, rec := range got {
		codes = append(codes, rec.SubscriberCode)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, codes)
	assert.Equal(t, 1, provider.authCalls, "one auth request per traversal")
	assert.Equal(t, 3, provider.listCalls, "one request per page")
}

func TestPagerKeepsGoingOnEmptyIntermediatePage(t *testing.T) {
	provider := &fakeProvider{pages: []SubscriptionPage{
		{Items: []SubscriptionRecord{record("a")}, PageInfo: PageInfo{NextPageToken: "p2"}},
		{Items: nil, PageInfo: PageInfo{NextPageToken: "p3"}},
		{Items: []SubscriptionRecord{record("b")}},
	}}
	srv := provider.server(t)
	defer srv.Close()

	got, err := Collect(context.Background(), newTestClient(srv).Subscriptions(Filter{}))

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 3, provider.listCalls)
}

func TestPagerEmptyResult(t *testing.T) {
	provider := &fakeProvider{pages: []SubscriptionPage{{}}}
	srv := provider.server(t)
	defer srv.Close()

	got, err := Collect(context.Background(), newTestClient(srv).Subscriptions(Filter{}))

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, provider.listCalls)
}

func TestPagerSurfacesHTTPError(t *testing.T) {
	provider := &fakeProvider{failList: true}
	srv := provider.server(t)
	defer srv.Close()

	pager := newTestClient(srv).Subscriptions(Filter{})
	_, err := pager.Next(context.Background())

	require.Error(t, err)
	assert.False(t, pager.More(), "traversal aborts after an error")
}

func TestPagerRestartsPerTraversal(t *testing.T) {
	provider := &fakeProvider{pages: []SubscriptionPage{
		{Items: []SubscriptionRecord{record("a")}},
		{Items: []SubscriptionRecord{record("a")}},
	}}
	srv := provider.server(t)
	defer srv.Close()

	client := newTestClient(srv)
	for i := 0; i < 2; i++ {
		items, err := Collect(context.Background(), client.Subscriptions(Filter{}))
		require.NoError(t, err)
		require.Len(t, items, 1, fmt.Sprintf("traversal %d", i))
	}
	assert.Equal(t, 2, provider.authCalls, "fresh token per traversal")
}
