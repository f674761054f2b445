package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Skyrin/go-safar/e"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	err := e.W(errors.New(`column "x" does not exist`), "0501")
	ev := NewEvent(err, LevelError, map[string]string{"operation": "complete_onboarding"})

	assert.NotEmpty(t, ev.ID)
	assert.NotEmpty(t, ev.Timestamp)
	assert.Equal(t, LevelError, ev.Level)
	assert.Equal(t, `column "x" does not exist`, ev.Message)
	assert.Equal(t, "complete_onboarding", ev.Tags["operation"])

	assert.NotEqual(t, ev.ID, NewEvent(err, LevelError, nil).ID)
}

func TestCapture(t *testing.T) {
	r := &Recorder{}

	Capture(r, nil, LevelError, nil)
	Capture(nil, errors.New("dropped"), LevelError, nil)
	assert.Empty(t, r.Events())

	Capture(Multi{r, Nop{}, LogReporter{}, r}, errors.New("boom"), LevelFatal, nil)
	evList := r.Events()
	require.Len(t, evList, 2)
	assert.Equal(t, "boom", evList[0].Message)
	assert.Equal(t, evList[0].ID, evList[1].ID)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (fw *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	fw.msgs = append(fw.msgs, msgs...)
	return fw.err
}

func TestKafkaReporter(t *testing.T) {
	fw := &fakeWriter{}
	kr := NewKafkaReporter(fw)

	ev := NewEvent(errors.New("boom"), LevelWarning, map[string]string{"user_id": "u1"})
	kr.Report(ev)

	require.Len(t, fw.msgs, 1)
	assert.Equal(t, []byte(ev.ID), fw.msgs[0].Key)

	got := Event{}
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &got))
	assert.Equal(t, ev, got)

	// write failures are swallowed
	fw.err = errors.New("broker down")
	assert.NotPanics(t, func() { kr.Report(ev) })
	assert.Len(t, fw.msgs, 2)
}
