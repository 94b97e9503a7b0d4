package memory_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/matteocacciola/cheshirecat-go-sdk/api/memory"
	"github.com/matteocacciola/cheshirecat-go-sdk/cattest"
	"github.com/matteocacciola/cheshirecat-go-sdk/client"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

func newEndpoint(t *testing.T) (*memory.Endpoint, *cattest.Server) {
	t.Helper()
	s := cattest.NewServer()
	t.Cleanup(s.Close)
	cfg := client.DefaultConfig()
	cfg.BaseURL = s.URL
	c, err := client.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return c.Memory(), s
}

func TestCollections(t *testing.T) {
	m, s := newEndpoint(t)
	ctx := context.Background()
	s.AddPoint("declarative", "the cat is on the table", nil)

	list, err := m.GetCollections(ctx, transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	counts := map[string]int{}
	for _, c := range list.Collections {
		counts[c.Name] = c.VectorsCount
	}
	if want, have := 1, counts["declarative"]; want != have {
		t.Errorf("declarative: want %d, have %d", want, have)
	}
	if want, have := 3, len(list.Collections); want != have {
		t.Errorf("want %d collections, have %d", want, have)
	}

	wipe, err := m.DeleteAllSingleCollectionPoints(ctx, memory.Declarative, transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	if !wipe.Deleted["declarative"] {
		t.Errorf("want declarative wiped, have %v", wipe.Deleted)
	}
	if want, have := 0, s.PointCount("declarative"); want != have {
		t.Errorf("want %d points, have %d", want, have)
	}

	all, err := m.DeleteAllCollectionPoints(ctx, transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := 3, len(all.Deleted); want != have {
		t.Errorf("want %d wiped, have %d", want, have)
	}
}

func TestUnknownCollection(t *testing.T) {
	m, _ := newEndpoint(t)
	_, err := m.DeleteAllSingleCollectionPoints(context.Background(), "nope", transport.DefaultScope)
	if want, have := http.StatusNotFound, transport.StatusCode(err); want != have {
		t.Errorf("want %d, have %d (%v)", want, have, err)
	}
}

func TestPointLifecycle(t *testing.T) {
	m, s := newEndpoint(t)
	ctx := context.Background()
	scope := transport.ForAgent("agentA")

	created, err := m.PostMemoryPoint(ctx, memory.Declarative, memory.Point{
		Content:  "cats sleep a lot",
		Metadata: map[string]interface{}{"source": "facts"},
	}, scope)
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("want an id, have none")
	}
	if want, have := "cats sleep a lot", created.Content; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "/memory/collections/declarative/points", s.LastRequest().Path; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "agentA", s.LastRequest().Header.Get("X-Agent-ID"); want != have {
		t.Errorf("want %q, have %q", want, have)
	}

	updated, err := m.PutMemoryPoint(ctx, memory.Declarative, created.ID, memory.Point{Content: "cats sleep all day"}, scope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := created.ID, updated.ID; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "PUT", s.LastRequest().Method; want != have {
		t.Errorf("want %q, have %q", want, have)
	}

	deleted, err := m.DeleteMemoryPoint(ctx, memory.Declarative, created.ID, scope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := created.ID, deleted.Deleted; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if len(s.LastRequest().Body) != 0 {
		t.Errorf("want no body on point removal, have %q", s.LastRequest().Body)
	}

	_, err = m.DeleteMemoryPoint(ctx, memory.Declarative, created.ID, scope)
	if want, have := http.StatusNotFound, transport.StatusCode(err); want != have {
		t.Errorf("want %d, have %d", want, have)
	}
}

func TestPointIDStaysInItsSegment(t *testing.T) {
	m, s := newEndpoint(t)
	ctx := context.Background()
	s.AddPoint("declarative", "cats purr", nil)

	for _, id := range []string{"../../../users/u1", "..", "a/b", "."} {
		_, err := m.DeleteMemoryPoint(ctx, memory.Declarative, id, transport.DefaultScope)
		if want, have := http.StatusNotFound, transport.StatusCode(err); want != have {
			t.Errorf("%q: want %d, have %d (%v)", id, want, have, err)
		}
		last := s.LastRequest()
		if want, have := "DELETE", last.Method; want != have {
			t.Errorf("%q: want %s, have %s", id, want, have)
		}
		if want := "/memory/collections/declarative/points/"; !strings.HasPrefix(last.Path, want) {
			t.Errorf("%q: want path under %q, have %q", id, want, last.Path)
		}
	}
	if want, have := 1, s.PointCount("declarative"); want != have {
		t.Errorf("want %d point, have %d", want, have)
	}
	if want, have := "/memory/collections/declarative/points/..%2F..%2F..%2Fusers%2Fu1", s.Requests()[0].Path; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestDeletePointsByMetadata(t *testing.T) {
	m, s := newEndpoint(t)
	s.AddPoint("declarative", "a", map[string]interface{}{"source": "a.pdf"})
	s.AddPoint("declarative", "b", map[string]interface{}{"source": "b.pdf"})

	res, err := m.DeleteMemoryPointsByMetadata(context.Background(), memory.Declarative,
		map[string]interface{}{"source": "a.pdf"}, transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Deleted {
		t.Error("want deleted")
	}
	if want, have := `{"source":"a.pdf"}`, string(s.LastRequest().Body); want != have {
		t.Errorf("want body %s, have %s", want, have)
	}
	if want, have := 1, s.PointCount("declarative"); want != have {
		t.Errorf("want %d point left, have %d", want, have)
	}
}

func TestGetMemoryPointsPaging(t *testing.T) {
	m, s := newEndpoint(t)
	for _, c := range []string{"one", "two", "three"} {
		s.AddPoint("episodic", c, nil)
	}
	ctx := context.Background()

	var seen []string
	opts := memory.PointsOptions{Limit: 2}
	for {
		page, err := m.GetMemoryPoints(ctx, memory.Episodic, opts, transport.DefaultScope)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range page.Points {
			seen = append(seen, p.Payload["page_content"].(string))
		}
		if page.NextOffset == "" {
			break
		}
		opts.Offset = page.NextOffset
	}
	if want, have := 3, len(seen); want != have {
		t.Fatalf("want %d points, have %d", want, have)
	}
	if want, have := "one", seen[0]; want != have {
		t.Errorf("want %q, have %q", want, have)
	}

	q, _ := url.ParseQuery(s.Requests()[0].RawQuery)
	if want, have := "2", q.Get("limit"); want != have {
		t.Errorf("limit: want %q, have %q", want, have)
	}
	if q.Has("offset") {
		t.Errorf("want no offset on the first page, have %q", q.Get("offset"))
	}
}

func TestRecall(t *testing.T) {
	m, s := newEndpoint(t)
	s.AddPoint("declarative", "the cat likes fish", map[string]interface{}{"source": "a"})
	s.AddPoint("declarative", "the cat likes milk", map[string]interface{}{"source": "b"})
	s.AddPoint("episodic", "dogs bark", nil)

	recall, err := m.GetMemoryRecall(context.Background(), "cat", memory.RecallOptions{
		K:        5,
		Metadata: map[string]interface{}{"source": "b"},
	}, transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := "cat", recall.Query.Text; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	found := recall.Vectors.Collections["declarative"]
	if want, have := 1, len(found); want != have {
		t.Fatalf("want %d recalled, have %d", want, have)
	}
	if want, have := "the cat likes milk", found[0].PageContent; want != have {
		t.Errorf("want %q, have %q", want, have)
	}

	q, _ := url.ParseQuery(s.LastRequest().RawQuery)
	if want, have := `{"source":"b"}`, q.Get("metadata"); want != have {
		t.Errorf("metadata: want %q, have %q", want, have)
	}
	if want, have := "5", q.Get("k"); want != have {
		t.Errorf("k: want %q, have %q", want, have)
	}
}

func TestConversationHistoryIsPerUser(t *testing.T) {
	m, _ := newEndpoint(t)
	ctx := context.Background()
	alice := transport.Scope{AgentID: "agent", UserID: "alice"}
	bob := transport.Scope{AgentID: "agent", UserID: "bob"}

	if _, err := m.PostConversationHistory(ctx, memory.ConversationItem{Who: "user", Text: "hi"}, alice); err != nil {
		t.Fatal(err)
	}
	h, err := m.GetConversationHistory(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := 1, len(h.History); want != have {
		t.Fatalf("alice: want %d items, have %d", want, have)
	}
	if want, have := "hi", h.History[0].Text; want != have {
		t.Errorf("want %q, have %q", want, have)
	}

	h, err = m.GetConversationHistory(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := 0, len(h.History); want != have {
		t.Errorf("bob: want %d items, have %d", want, have)
	}

	wipe, err := m.DeleteConversationHistory(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if !wipe.Deleted {
		t.Error("want deleted")
	}
	h, _ = m.GetConversationHistory(ctx, alice)
	if want, have := 0, len(h.History); want != have {
		t.Errorf("after wipe: want %d items, have %d", want, have)
	}
}
