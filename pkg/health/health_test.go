package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("unreachable") }

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		register func(c *Checker)
		want     Status
	}{
		{"no checks", func(c *Checker) {}, StatusUp},
		{"all up", func(c *Checker) { c.Register("segments", ok); c.RegisterOptional("redis", ok) }, StatusUp},
		{"optional down", func(c *Checker) { c.Register("segments", ok); c.RegisterOptional("redis", fail) }, StatusDegraded},
		{"critical down", func(c *Checker) { c.Register("segments", fail); c.RegisterOptional("redis", fail) }, StatusDown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChecker()
			tc.register(c)
			assert.Equal(t, tc.want, c.Run(context.Background()).Status)
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.RegisterOptional("redis", fail)
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "unreachable")

	c.Register("kafka", fail)
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
