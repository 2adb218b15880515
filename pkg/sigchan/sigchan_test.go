package sigchan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitCoalesces(t *testing.T) {
	c := New()
	c.Emit()
	c.Emit()
	c.Emit()

	select {
	case <-c.C():
	default:
		t.Fatal("expected a pending signal")
	}
	select {
	case <-c.C():
		t.Fatal("signals should coalesce")
	default:
	}

	c.Emit()
	assert.Len(t, c.C(), 1)
}
