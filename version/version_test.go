package version

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"
)

func TestNewBaseline(t *testing.T) {
	m := New("hello")
	h := m.History()
	if len(h.Versions) != 1 || h.CurrentIndex != 0 {
		t.Fatalf("unexpected history %+v", h)
	}
	v := h.Versions[0]
	if v.Content != "hello" || v.AIGenerated || v.Summary != "" {
		t.Errorf("unexpected baseline %+v", v)
	}
	if !strings.HasPrefix(v.ID, "v_") {
		t.Errorf("unexpected id %q", v.ID)
	}
	if m.CanGoBack() || m.CanGoForward() {
		t.Error("single version should not navigate")
	}
	if m.Label() != "1/1" {
		t.Errorf("Label = %q", m.Label())
	}
}

func TestAddTruncatesForwardHistory(t *testing.T) {
	m := New("v0")
	m.Add("v1", "first", true)
	v2 := m.Add("v2", "second", true)
	m.Previous()

	v3 := m.Add("v3", "third", true)
	h := m.History()
	if len(h.Versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(h.Versions))
	}
	if h.CurrentIndex != 2 {
		t.Errorf("expected index 2, got %d", h.CurrentIndex)
	}
	got := []string{h.Versions[0].Content, h.Versions[1].Content, h.Versions[2].Content}
	if strings.Join(got, ",") != "v0,v1,v3" {
		t.Errorf("unexpected versions %v", got)
	}
	if h.Versions[2].ID != v3.ID {
		t.Error("new version should be current")
	}
	for _, v := range h.Versions {
		if v.ID == v2.ID {
			t.Error("v2 should be discarded")
		}
	}
	if m.CanGoForward() {
		t.Error("no redo after a new branch")
	}
}

func TestUpdateCurrentDoesNotBranch(t *testing.T) {
	m := New("a")
	m.Add("b", "summary", true)
	m.Add("c", "", false)
	m.Previous()

	before := m.History()
	m.UpdateCurrent("b edited")
	after := m.History()

	if len(after.Versions) != len(before.Versions) || after.CurrentIndex != before.CurrentIndex {
		t.Fatalf("history shape changed: %+v", after)
	}
	cur := after.Versions[after.CurrentIndex]
	if cur.Content != "b edited" || cur.Summary != "summary" || !cur.AIGenerated {
		t.Errorf("unexpected current %+v", cur)
	}
	if after.Versions[0].Content != "a" || after.Versions[2].Content != "c" {
		t.Error("other versions must be untouched")
	}
}

func TestNavigationClamps(t *testing.T) {
	m := New("a")
	if m.Previous() {
		t.Error("Previous at baseline should be a no-op")
	}
	if m.Next() {
		t.Error("Next at tail should be a no-op")
	}
	m.Add("b", "", true)
	if m.Next() {
		t.Error("Next at tail should be a no-op")
	}
	if !m.Previous() || m.CurrentContent() != "a" {
		t.Error("Previous should move back to a")
	}
	if m.Previous() {
		t.Error("Previous must not wrap")
	}
	if m.CurrentNumber() != 1 {
		t.Errorf("CurrentNumber = %d", m.CurrentNumber())
	}
	if !m.Next() || m.CurrentContent() != "b" {
		t.Error("Next should move to b")
	}
}

func TestResetClearsHistory(t *testing.T) {
	m := New("a")
	for i := 0; i < 5; i++ {
		m.Add("x"+strconv.Itoa(i), "", true)
	}
	m.Previous()
	m.Reset("fresh")

	h := m.History()
	if len(h.Versions) != 1 || h.CurrentIndex != 0 {
		t.Fatalf("unexpected history %+v", h)
	}
	if h.Versions[0].Content != "fresh" || h.Versions[0].AIGenerated {
		t.Errorf("unexpected baseline %+v", h.Versions[0])
	}
}

func TestHistoryIsACopy(t *testing.T) {
	m := New("a")
	h := m.History()
	h.Versions[0].Content = "mutated"
	if m.CurrentContent() != "a" {
		t.Error("History must not alias internal state")
	}
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	m := New("seed")
	for i := 0; i < 2000; i++ {
		switch r.Intn(6) {
		case 0:
			m.Add(strconv.Itoa(i), "", r.Intn(2) == 0)
		case 1:
			m.UpdateCurrent(strconv.Itoa(i))
		case 2:
			m.Previous()
		case 3:
			m.Next()
		case 4:
			if r.Intn(20) == 0 {
				m.Reset(strconv.Itoa(i))
			}
		case 5:
			_ = m.Current()
		}
		h := m.History()
		if len(h.Versions) == 0 {
			t.Fatalf("step %d: empty history", i)
		}
		if h.CurrentIndex < 0 || h.CurrentIndex >= len(h.Versions) {
			t.Fatalf("step %d: index %d out of range %d", i, h.CurrentIndex, len(h.Versions))
		}
		if m.CanGoBack() != (h.CurrentIndex > 0) || m.CanGoForward() != (h.CurrentIndex < len(h.Versions)-1) {
			t.Fatalf("step %d: derived flags disagree", i)
		}
	}
}

func TestEditThenRewriteThenUndo(t *testing.T) {
	m := New("hello wrold")
	m.UpdateCurrent("hello wrold fixed")
	if m.Total() != 1 || m.CurrentNumber() != 1 {
		t.Fatal("edit must not add versions")
	}

	v1 := m.Add("Hello world.", "Fixed spelling", true)
	if m.Total() != 2 || m.CurrentNumber() != 2 || !v1.AIGenerated {
		t.Fatalf("unexpected state after rewrite: %s", m.Label())
	}

	m.Previous()
	if got := m.CurrentContent(); got != "hello wrold fixed" {
		t.Errorf("CurrentContent = %q", got)
	}
	if m.Original() != "hello wrold" {
		t.Errorf("Original = %q, want the seeded text", m.Original())
	}
}

func TestResetRestoresSeededText(t *testing.T) {
	m := New("hello wrold")
	m.UpdateCurrent("hello wrold fixed")
	m.Add("Hello world.", "", true)

	m.Reset(m.Original())
	if m.CurrentContent() != "hello wrold" || m.Total() != 1 {
		t.Errorf("after reset: %q, %s", m.CurrentContent(), m.Label())
	}

	m.Reset("recaptured")
	if m.Original() != "recaptured" {
		t.Errorf("Original = %q after reseed", m.Original())
	}
}
