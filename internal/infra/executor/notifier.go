package executor

import (
	"github.com/rs/zerolog"

	"quorumd/internal/domain"
)

// LogNotifier surfaces operator-facing failures as error-level log events.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) ExecutionFailed(proposalID string, action domain.ActionKind, errorCode string, err error) {
	n.log.Error().
		Str("proposal_id", proposalID).
		Str("action", string(action)).
		Str("error_code", errorCode).
		Err(err).
		Msg("action execution failed; operator retry required")
}

func (n *LogNotifier) AuditAppendFailed(ref string, err error) {
	n.log.Error().
		Str("ref", ref).
		Err(err).
		Msg("audit append failed")
}

func (n *LogNotifier) AttemptRecordFailed(proposalID string, err error) {
	n.log.Error().
		Str("proposal_id", proposalID).
		Err(err).
		Msg("execution attempt record not persisted")
}
