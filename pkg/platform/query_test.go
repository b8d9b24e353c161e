package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func TestQueryBuilderRead(t *testing.T) {
	tcases := []struct {
		name  string
		build func(c *Client) *QueryBuilder
		want  map[string]string
	}{
		{
			name:  "ordered with limit",
			build: func(c *Client) *QueryBuilder { return c.From("events").Select("*").Order("date", false).Limit(3) },
			want:  map[string]string{"select": "*", "order": "date.desc", "limit": "3"},
		},
		{
			name:  "ascending without limit",
			build: func(c *Client) *QueryBuilder { return c.From("team_members").Order("id", true) },
			want:  map[string]string{"select": "*", "order": "id.asc"},
		},
		{
			name:  "equality filter",
			build: func(c *Client) *QueryBuilder { return c.From("profiles").Eq("id", "abc") },
			want:  map[string]string{"select": "*", "id": "eq.abc"},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			var got map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = map[string]string{}
				for k := range r.URL.Query() {
					got[k] = r.URL.Query().Get(k)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`[{"id":1,"title":"Innovate-a-Thon"}]`))
			}))
			defer srv.Close()

			client, err := New(srv.URL)
			require.NoError(t, err)

			var rows []event
			require.NoError(t, tc.build(client).Execute(context.Background(), &rows))
			assert.Equal(t, tc.want, got)
			assert.Equal(t, []event{{ID: 1, Title: "Innovate-a-Thon"}}, rows)
		})
	}
}

func TestQueryBuilderInsertSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			_ = json.NewEncoder(w).Encode(sessionJSON("access-1", "refresh-1", time.Now().Add(time.Hour).Unix()))
		case "/rest/v1/announcements":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
			assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `[{"title":"Call for Volunteers"}]`, string(body))
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"permission denied for table announcements"}`))
		}
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)
	_, err = client.Auth.SignInWithPassword(context.Background(), "admin@isf.club", "admin123")
	require.NoError(t, err)

	err = client.From("announcements").Insert(context.Background(), []map[string]string{{"title": "Call for Volunteers"}}, nil)
	require.Error(t, err)
	assert.Equal(t, "permission denied for table announcements", err.Error())
}

func TestStorageUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/event-images/1700000000_poster.png", r.URL.Path)
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "png-bytes", string(content))
		assert.Equal(t, "1700000000_poster.png", header.Filename)

		_, _ = w.Write([]byte(`{"Key":"event-images/1700000000_poster.png","public_url":"https://cdn.example/poster.webp"}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	res, err := client.Storage("event-images").Upload(context.Background(), "1700000000_poster.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/poster.webp", res.PublicURL)
}

func TestSubscribeDeliversChanges(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realtime/v1/threads", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"table":"threads","type":"INSERT","record":{"id":7}}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	got := make(chan ChangeEvent, 1)
	sub, err := client.Subscribe(context.Background(), "threads", func(e ChangeEvent) { got <- e })
	require.NoError(t, err)

	select {
	case e := <-got:
		assert.Equal(t, "threads", e.Table)
		assert.Equal(t, "INSERT", e.Type)
		assert.JSONEq(t, `{"id":7}`, string(e.Record))
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
}
