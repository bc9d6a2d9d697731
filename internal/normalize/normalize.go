package normalize

import (
	"log/slog"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

// Normalize identifies the producer shape of payload and returns the
// list of canonical alerts it contains. It is the entry point other
// packages call; Identify is also exported, while the per-kind parsers
// are unexported and tested from inside this package.
func Normalize(logger *slog.Logger, payload []byte) ([]*alert.Alert, error) {
	if logger == nil {
		logger = slog.Default()
	}

	kind, err := Identify(payload)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindGrafana:
		return parseGrafana(logger, payload)
	case KindPrometheus:
		return parsePrometheus(logger, payload)
	case KindSingle:
		return parseSingle(payload)
	default:
		return nil, &ErrUnrecognizedPayload{Reason: "identification produced unknown kind"}
	}
}
