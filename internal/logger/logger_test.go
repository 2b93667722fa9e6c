package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resetLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("info")
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	})
	return &buf
}

func TestStructuredVariantsEmitAttrs(t *testing.T) {
	buf := resetLogger(t)

	Infow("trade decision", "ticker", "ACME", "action", "buy", "size", 12)

	out := buf.String()
	assert.Contains(t, out, "msg=\"trade decision\"")
	assert.Contains(t, out, "ticker=ACME")
	assert.Contains(t, out, "action=buy")
	assert.Contains(t, out, "size=12")
}

func TestLevelGating(t *testing.T) {
	buf := resetLogger(t)

	Debugw("hidden", "k", "v")
	assert.Empty(t, buf.String())

	SetLevel("debug")
	Debugw("visible", "k", "v")
	assert.Contains(t, buf.String(), "msg=visible")

	SetLevel("error")
	buf.Reset()
	Warnf("still hidden %d", 1)
	assert.Empty(t, buf.String())
	Errorf("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
}

func TestSetLevelUnknownFallsBackToInfo(t *testing.T) {
	buf := resetLogger(t)

	SetLevel("bogus")
	Infow("kept", "ticker", "ACME")
	assert.Contains(t, buf.String(), "msg=kept")
}
