package authgate

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineFormatsKeyValues(t *testing.T) {
	assert.Equal(t, "signed out user_id=u-1\n", line("signed out", []any{"user_id", "u-1"}))
	assert.Equal(t, "navigate from=credential to=authenticated\n",
		line("navigate", []any{"from", ScreenCredential, "to", ScreenAuthenticated}))
	assert.Equal(t, "odd key=<missing>\n", line("odd", []any{"key"}))
	assert.Equal(t, "bare\n", line("bare", nil))
}

func TestNormalizeLogger(t *testing.T) {
	assert.IsType(t, defLogger{}, normalizeLogger(nil))

	var buf bytes.Buffer
	custom := writerLogger{w: &buf}
	assert.Equal(t, custom, normalizeLogger(custom))
}

type writerLogger struct {
	w *bytes.Buffer
}

func (l writerLogger) Debug(msg string, args ...any) { fmt.Fprint(l.w, line(msg, args)) }
func (l writerLogger) Info(msg string, args ...any)  { fmt.Fprint(l.w, line(msg, args)) }
func (l writerLogger) Warn(msg string, args ...any)  { fmt.Fprint(l.w, line(msg, args)) }
func (l writerLogger) Error(msg string, args ...any) { fmt.Fprint(l.w, line(msg, args)) }
