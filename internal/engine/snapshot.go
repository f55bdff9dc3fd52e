package engine

import (
	"encoding/json"

	"github.com/coder/quartz"

	"github.com/jdstemmler/poker/internal/errs"
)

// Snapshot serializes the complete engine state, including the deck, so
// a restored engine resumes mid-hand exactly where it left off.
func (e *Engine) Snapshot() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "serializing game state")
	}
	return data, nil
}

// Restore rehydrates an engine from a snapshot. The clock is not part
// of the snapshot; pass nil for real time.
func Restore(data []byte, clock quartz.Clock) (*Engine, error) {
	var e Engine
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errs.Wrap(errs.Internal, err, "deserializing game state")
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	e.clock = clock
	return &e, nil
}
