package presenter

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func newTestPresenter() (*TerminalPresenter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewWithOptions(&out, &errOut, ColorNever), &out, &errOut
}

func TestErrorGoesToStderr(t *testing.T) {
	p, out, errOut := newTestPresenter()

	p.Error(errors.New("boom"), "recording baseline")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "[ERROR] recording baseline: boom")
}

func TestErrorWithoutContext(t *testing.T) {
	p, _, errOut := newTestPresenter()

	p.Error(errors.New("boom"), "")

	assert.Equal(t, "[ERROR] boom\n", errOut.String())
}

func TestNilErrorIsIgnored(t *testing.T) {
	p, _, errOut := newTestPresenter()

	p.Error(nil, "context")

	assert.Empty(t, errOut.String())
}

func TestSuccessAndWarningMarkers(t *testing.T) {
	p, out, _ := newTestPresenter()

	p.Success("baseline recorded")
	p.Warning("metrics missing")

	assert.Contains(t, out.String(), "✓ baseline recorded")
	assert.Contains(t, out.String(), "⚠ metrics missing")
}

func TestSectionUnderline(t *testing.T) {
	p, out, _ := newTestPresenter()

	p.Section("Results")

	assert.Equal(t, "Results\n-------\n", out.String())
}

func TestQuietSuppressesAllButErrors(t *testing.T) {
	p, out, errOut := newTestPresenter()
	p.SetQuiet(true)

	p.Success("hidden")
	p.Warning("hidden")
	p.Info("hidden")
	p.Section("hidden")
	p.Separator()
	p.Error(errors.New("still shown"), "")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "still shown")
	assert.True(t, p.IsQuiet())
}
