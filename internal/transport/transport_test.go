// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuner/internal/analysis"
	"tuner/internal/log"
	"tuner/internal/pitch"
	"tuner/pkg/utils"
)

func resultFor(freq float64) analysis.Result {
	return analysis.Result{
		Seq:      1,
		Estimate: pitch.Estimate{Frequency: freq},
		Note:     pitch.FrequencyToNote(freq),
	}
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, false)

	require.NoError(t, sink.Send(resultFor(110)))
	assert.Equal(t, "\rNote: A2 (110.00 Hz)"+linePadding, buf.String())

	buf.Reset()
	require.NoError(t, sink.Send(analysis.Result{}))
	assert.Equal(t, "\rNote: --- (0.00 Hz)"+linePadding, buf.String())

	buf.Reset()
	require.NoError(t, sink.Close())
	assert.Equal(t, "\n", buf.String())

	assert.ErrorIs(t, sink.Send(resultFor(110)), ErrClosed)
	assert.NoError(t, sink.Close(), "second Close is a no-op")
}

func TestConsoleSinkCents(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, true)

	require.NoError(t, sink.Send(resultFor(445)))
	assert.True(t, strings.HasPrefix(buf.String(), "\rNote: A4 (445.00 Hz) +20 cents"), buf.String())
}

type failingSink struct {
	utils.MockSink[analysis.Result]
	err error
}

func (f *failingSink) Send(r analysis.Result) error {
	_ = f.MockSink.Send(r)
	return f.err
}

func TestMultiSink(t *testing.T) {
	first := &failingSink{err: errors.New("first failed")}
	second := &utils.MockSink[analysis.Result]{}
	multi := MultiSink{first, second}

	err := multi.Send(resultFor(220))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first failed")
	assert.Equal(t, 1, first.Len())
	assert.Equal(t, 1, second.Len(), "a failing sink must not starve later sinks")

	require.NoError(t, multi.Close())
	assert.True(t, first.Closed())
	assert.True(t, second.Closed())

	assert.NoError(t, MultiSink(nil).Send(resultFor(220)))
}

func TestLogSinkLogsNoteChanges(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	prev := log.GetLevel()
	log.SetLevel(log.LevelInfo)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(prev)
	})

	sink := NewLogSink()
	for _, f := range []float64{110, 110.5, 0, 146.83} {
		require.NoError(t, sink.Send(resultFor(f)))
	}
	require.NoError(t, sink.Close())

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "note A2"))
	assert.Equal(t, 1, strings.Count(out, "no pitch"))
	assert.Contains(t, out, "result: note D3 (146.83 Hz")
	assert.NotContains(t, out, "frame 1:", "per-frame lines are debug only")
}
