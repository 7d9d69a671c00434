package manager

import "github.com/rs/zerolog"

// LogPublisher writes supervisor events to a zerolog logger at debug level.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher { return &LogPublisher{log: logger} }

func (p *LogPublisher) Publish(e Event) {
	ev := p.log.Debug().Str("event", e.Name)
	if e.VariantID != "" {
		ev = ev.Str("variant", e.VariantID)
	}
	if e.RunID != "" {
		ev = ev.Str("run_id", e.RunID)
	}
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("supervisor event")
}
