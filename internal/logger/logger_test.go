package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	})
	return &buf
}

func TestSetOutput(t *testing.T) {
	buf := capture(t)
	Infof("cycle %d committed", 7)
	assert.Contains(t, buf.String(), "cycle 7 committed")
	assert.Contains(t, buf.String(), "level=INFO")
}

func TestSetLevel(t *testing.T) {
	buf := capture(t)

	Debugf("hidden at info")
	assert.NotContains(t, buf.String(), "hidden at info")

	SetLevel("debug")
	Debugf("visible at debug")
	assert.Contains(t, buf.String(), "visible at debug")

	SetLevel("error")
	Warnf("suppressed warn")
	Errorf("kept error")
	assert.NotContains(t, buf.String(), "suppressed warn")
	assert.Contains(t, buf.String(), "kept error")

	SetLevel("nonsense")
	Infof("back to info")
	assert.Contains(t, buf.String(), "back to info")
}

func TestTriggerLog(t *testing.T) {
	buf := capture(t)
	var side bytes.Buffer
	SetTriggerWriter(&side)
	t.Cleanup(func() {
		SetTriggerWriter(nil)
		EnableTriggerLog(false)
	})

	Triggerf("cycle %d fired", 1)
	assert.Empty(t, side.String(), "disabled trigger log must stay silent")

	EnableTriggerLog(true)
	Triggerf("cycle %d fired", 2)
	assert.Contains(t, side.String(), "cycle 2 fired")
	assert.Contains(t, buf.String(), "[trigger] cycle 2 fired")
}
