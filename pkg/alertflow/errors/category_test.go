package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, CategoryPermanent},
		{"plain error", stderrors.New("boom"), CategoryPermanent},
		{"transient", Transient(stderrors.New("busy")), CategoryTransient},
		{"wrapped transient", fmt.Errorf("outer: %w", Transient(stderrors.New("busy"))), CategoryTransient},
		{"config", &ConfigError{Field: "threshold", Message: "must be positive"}, CategoryConfig},
		{"persistence", &PersistenceError{Op: "store", Err: stderrors.New("db locked")}, CategoryTransient},
		{"listener", &ListenerError{Event: "test", Err: stderrors.New("boom")}, CategoryPermanent},
		{"handler", &HandlerError{Handler: "webhook", Rule: "r1", Err: stderrors.New("boom")}, CategoryPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.err))
		})
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "transient", CategoryTransient.String())
	assert.Equal(t, "permanent", CategoryPermanent.String())
	assert.Equal(t, "config", CategoryConfig.String())
	assert.Equal(t, "unknown", Category(99).String())
}

func TestErrorMessages(t *testing.T) {
	inner := stderrors.New("boom")

	le := &ListenerError{Event: "connection.connect", Err: inner}
	assert.Contains(t, le.Error(), "connection.connect")
	assert.ErrorIs(t, le, inner)

	pe := &PersistenceError{Op: "query", Err: inner}
	assert.Contains(t, pe.Error(), "query")
	assert.ErrorIs(t, pe, inner)

	he := &HandlerError{Handler: "webhook", Rule: "high-errors", Err: inner}
	assert.Contains(t, he.Error(), "webhook")
	assert.Contains(t, he.Error(), "high-errors")
	assert.ErrorIs(t, he, inner)
}

func TestConfigErrorMessage(t *testing.T) {
	withField := &ConfigError{Field: "source_pattern", Message: "invalid regex"}
	assert.Contains(t, withField.Error(), "source_pattern")

	bare := &ConfigError{Message: "empty rule name"}
	assert.Equal(t, "config error: empty rule name", bare.Error())
}

func TestTransientNil(t *testing.T) {
	require.NoError(t, Transient(nil))
}
