package telemetry

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogReporter writes events to the global zerolog logger
type LogReporter struct{}

// Report implements Reporter
func (LogReporter) Report(ev Event) {
	var ze *zerolog.Event
	switch ev.Level {
	case LevelDebug:
		ze = log.Debug()
	case LevelInfo:
		ze = log.Info()
	case LevelWarning:
		ze = log.Warn()
	default:
		// fatal is logged as error, a report must never exit the process
		ze = log.Error()
	}

	ze = ze.Str("eventId", ev.ID).Str("level", string(ev.Level))
	for k, v := range ev.Tags {
		ze = ze.Str(k, v)
	}
	ze.Msg(ev.Message)
}
