package run

import (
	"testing"
	"time"

	"github.com/sandk/offroad-dynamics/pkg/core"
)

func TestContext_Default(t *testing.T) {
	c := NewContext()
	if c.Active() {
		t.Error("fresh context should not be active")
	}
	if c.Get() == nil {
		t.Fatal("expected placeholder run")
	}
}

func TestContext_SetAndClear(t *testing.T) {
	c := NewContext()
	c.Set(&core.Run{ID: 4, Name: "dunes", StartedAt: time.Now(), TickRate: 60})

	if !c.Active() {
		t.Error("expected active run")
	}
	if c.Get().Name != "dunes" {
		t.Errorf("unexpected run: %+v", c.Get())
	}

	c.Clear()
	if c.Active() {
		t.Error("expected inactive after clear")
	}
}
