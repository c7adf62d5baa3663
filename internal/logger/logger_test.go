package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetLevel(INFO)
		_ = SetLogOutput('c')
	})
	return &buf
}

func TestLevelsFilter(t *testing.T) {
	buf := capture(t, WARN)
	Info("hidden")
	Debug("hidden too")
	Warn("shown", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 3")
}

func TestArgumentsFormatting(t *testing.T) {
	buf := capture(t, DEBUG)
	Debug("values", 0.123456, errors.New("boom"), nil, "text")
	Highlight("best", "lr")
	Info("object", struct{ Name string }{"lr"})

	out := buf.String()
	assert.Contains(t, out, "values 0.1235 boom nil text")
	assert.Contains(t, out, "best lr")
	assert.Contains(t, out, "highlight")
	assert.True(t, strings.Contains(out, "[Object of type struct { Name string }]"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("DEBUG"))
	assert.Equal(t, WARN, ParseLevel(" warning "))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("chatty"))
	assert.Equal(t, "HIGHLIGHT", HIGHLIGHT.String())
}

func TestSetLogOutputRejectsUnknown(t *testing.T) {
	assert.Error(t, SetLogOutput('x'))
}
