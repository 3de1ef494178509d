package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gmux "github.com/gorilla/mux"

	"chatrelay/pkg/messages"
	"chatrelay/pkg/models"
	"chatrelay/pkg/presence"
	"chatrelay/pkg/router"
	"chatrelay/pkg/store"
)

func testServer(t *testing.T) (*httptest.Server, Deps) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	dir := presence.New(st)
	mlog := messages.NewLog(st)
	ibx := messages.NewInbox(st)
	d := Deps{
		Router:   router.New(dir, mlog, ibx, nil),
		Log:      mlog,
		Inbox:    ibx,
		Presence: dir,
	}
	r := gmux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	RegisterThreads(v1, d)
	RegisterInbox(v1, d)
	RegisterPresence(v1, d)
	RegisterSend(v1, d)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, d
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestSendThenThreadHistory(t *testing.T) {
	srv, _ := testServer(t)

	body := `{"sender_id":"alice","receiver_id":"bob","content":"hello"}`
	resp, err := http.Post(srv.URL+"/v1/messages", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var res router.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != 200 {
		t.Fatalf("send result: %+v", res)
	}

	var hist struct {
		Thread   string           `json:"thread"`
		Messages []models.Message `json:"messages"`
	}
	// either participant order resolves the same thread
	for _, path := range []string{"/v1/threads/alice/bob/messages", "/v1/threads/bob/alice/messages"} {
		if code := getJSON(t, srv.URL+path, &hist); code != http.StatusOK {
			t.Fatalf("%s: status %d", path, code)
		}
		if len(hist.Messages) != 1 || hist.Messages[0].Content != "hello" {
			t.Fatalf("%s: %+v", path, hist)
		}
	}
}

func TestThreadHistoryLimit(t *testing.T) {
	srv, d := testServer(t)
	for _, text := range []string{"one", "two", "three"} {
		res := d.Router.HandleEvent(context.Background(), models.Event{Route: models.RouteSend, From: "alice", To: "bob", Message: text})
		if res.Status != 200 {
			t.Fatalf("send %s: %+v", text, res)
		}
	}
	var hist struct {
		Messages []models.Message `json:"messages"`
	}
	if code := getJSON(t, srv.URL+"/v1/threads/alice/bob/messages?limit=2", &hist); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(hist.Messages) != 2 || hist.Messages[0].Content != "two" {
		t.Fatalf("limit wrong: %+v", hist.Messages)
	}
}

func TestInboxNewestFirst(t *testing.T) {
	srv, d := testServer(t)
	for _, to := range []string{"bob", "carol"} {
		res := d.Router.HandleEvent(context.Background(), models.Event{Route: models.RouteSend, From: "alice", To: to, Message: "hi " + to})
		if res.Status != 200 {
			t.Fatalf("send to %s: %+v", to, res)
		}
	}
	var inbox struct {
		User    string              `json:"user"`
		Entries []models.InboxEntry `json:"entries"`
	}
	if code := getJSON(t, srv.URL+"/v1/inbox/alice", &inbox); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(inbox.Entries) != 2 {
		t.Fatalf("entries: %+v", inbox.Entries)
	}
	if inbox.Entries[0].TS < inbox.Entries[1].TS {
		t.Fatalf("not newest first: %+v", inbox.Entries)
	}
}

func TestPresenceLookup(t *testing.T) {
	srv, d := testServer(t)
	if err := d.Presence.Connect("c1", "alice"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	var out struct {
		Online      bool     `json:"online"`
		Connections []string `json:"connections"`
	}
	if code := getJSON(t, srv.URL+"/v1/presence/alice", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if !out.Online || len(out.Connections) != 1 || out.Connections[0] != "c1" {
		t.Fatalf("presence: %+v", out)
	}
	if code := getJSON(t, srv.URL+"/v1/presence/nobody", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.Online {
		t.Fatalf("offline user online: %+v", out)
	}
}

func TestBadIdentifiersRejected(t *testing.T) {
	srv, _ := testServer(t)
	if code := getJSON(t, srv.URL+"/v1/inbox/al%23ice", nil); code != http.StatusBadRequest {
		t.Fatalf("inbox bad id: status %d", code)
	}
	if code := getJSON(t, srv.URL+"/v1/presence/al%23ice", nil); code != http.StatusBadRequest {
		t.Fatalf("presence bad id: status %d", code)
	}
}
