package session

import (
	"testing"
	"time"

	"github.com/kadirpekel/protolink/pkg/a2a"
)

func TestManager_CreateAndGet(t *testing.T) {
	m := NewManager()

	ctx := m.Create("")
	if ctx.ID == "" {
		t.Error("Create should assign an ID")
	}

	named := m.Create("ctx-1")
	if named.ID != "ctx-1" {
		t.Errorf("Create ID = %q, want %q", named.ID, "ctx-1")
	}

	got, ok := m.Get("ctx-1")
	if !ok {
		t.Fatal("Get should find created context")
	}
	if got.ID != "ctx-1" {
		t.Errorf("Get ID = %q, want %q", got.ID, "ctx-1")
	}

	if _, ok := m.Get("missing"); ok {
		t.Error("Get should miss unknown context")
	}
}

func TestManager_GetRefreshesLastAccessed(t *testing.T) {
	m := NewManager()
	ctx := m.Create("ctx-1")
	created := ctx.LastAccessed

	time.Sleep(5 * time.Millisecond)
	got, _ := m.Get("ctx-1")
	if !got.LastAccessed.After(created) {
		t.Error("Get should refresh LastAccessed")
	}
}

func TestManager_AddMessage(t *testing.T) {
	m := NewManager()
	m.Create("ctx-1")

	if !m.AddMessage("ctx-1", a2a.NewUserMessage("hi")) {
		t.Error("AddMessage to existing context should return true")
	}
	if m.AddMessage("missing", a2a.NewUserMessage("hi")) {
		t.Error("AddMessage to missing context should return false")
	}
	if got := m.MessageCount("ctx-1"); got != 1 {
		t.Errorf("MessageCount = %d, want 1", got)
	}
	if got := m.MessageCount("missing"); got != 0 {
		t.Errorf("MessageCount for missing = %d, want 0", got)
	}
}

func TestManager_DeleteAndClear(t *testing.T) {
	m := NewManager()
	m.Create("a")
	m.Create("b")

	if !m.Delete("a") {
		t.Error("Delete existing should return true")
	}
	if m.Delete("a") {
		t.Error("Delete missing should return false")
	}
	if got := m.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
	if got := len(m.List()); got != 1 {
		t.Errorf("List = %d entries, want 1", got)
	}

	m.Clear()
	if got := m.Count(); got != 0 {
		t.Errorf("Count after Clear = %d, want 0", got)
	}
}
