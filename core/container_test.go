package core_test

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/core"
)

func TestContainer_SetGetRemove(t *testing.T) {
	c := core.NewContainer()

	c.Set("db", "connection")
	if v, ok := c.Get("db"); !ok || v != "connection" {
		t.Errorf("Get() = %v, %v; want connection, true", v, ok)
	}

	c.Set("db", "replacement")
	if v, _ := c.Get("db"); v != "replacement" {
		t.Errorf("Get() after overwrite = %v, want replacement", v)
	}

	c.Remove("db")
	if _, ok := c.Get("db"); ok {
		t.Error("Get() = true after Remove()")
	}
}

func TestContainer_StructKeys(t *testing.T) {
	type dbKey struct{}
	type cacheKey struct{}

	c := core.NewContainer()
	c.Set(dbKey{}, "db-value")
	c.Set(cacheKey{}, "cache-value")

	if v, _ := c.Get(dbKey{}); v != "db-value" {
		t.Errorf("Get(dbKey) = %v, want db-value", v)
	}
	if v, _ := c.Get(cacheKey{}); v != "cache-value" {
		t.Errorf("Get(cacheKey) = %v, want cache-value", v)
	}
}

func TestContainer_MustGetPanics(t *testing.T) {
	c := core.NewContainer()

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("MustGet() did not panic for a missing key")
		}
		if msg := fmt.Sprint(rec); !strings.Contains(msg, "missing dependency") {
			t.Errorf("panic message = %q, want it to name the missing dependency", msg)
		}
	}()
	c.MustGet("nowhere")
}

func TestContainer_TypedHelpers(t *testing.T) {
	c := core.NewContainer()
	logger := newTestLogger()

	core.Put[*slog.Logger](c, logger)
	if got := core.Get[*slog.Logger](c); got != logger {
		t.Error("Get[T]() returned a different instance than Put[T]() stored")
	}

	// Typed keys do not collide with plain keys of the same name
	c.Set("logger", "a string")
	if got := core.Get[*slog.Logger](c); got != logger {
		t.Error("typed registration disturbed by an unrelated plain key")
	}
}

func TestContainer_TypedHelpers_WrongTypePanics(t *testing.T) {
	c := core.NewContainer()
	c.Set(core.TypeKey[*slog.Logger]{}, "not a logger")

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("Get[T]() did not panic for a mistyped registration")
		}
		if msg := fmt.Sprint(rec); !strings.Contains(msg, "wrong type") {
			t.Errorf("panic message = %q, want a wrong type report", msg)
		}
	}()
	core.Get[*slog.Logger](c)
}
