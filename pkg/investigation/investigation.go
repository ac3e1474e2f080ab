// Package investigation tracks performance investigations: JSON records that
// capture which scenario is being chased, what phase the work is in, and
// whether the investigation is still active. Records live under the perfscope
// state directory with plain overwrite-on-update semantics.
package investigation

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// CurrentSchemaVersion is the schema version written to new records. Records
// carrying a newer version than the binary understands are treated as corrupt.
const CurrentSchemaVersion = 1

// Status describes whether an investigation is being worked on.
type Status string

// Investigation statuses.
const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusResolved Status = "resolved"
)

// Phase describes where an investigation currently stands.
type Phase string

// Investigation phases.
const (
	PhaseReproduce Phase = "reproduce"
	PhaseMeasure   Phase = "measure"
	PhaseIsolate   Phase = "isolate"
	PhaseVerify    Phase = "verify"
)

var validStatuses = map[Status]bool{
	StatusActive:   true,
	StatusPaused:   true,
	StatusResolved: true,
}

var validPhases = map[Phase]bool{
	PhaseReproduce: true,
	PhaseMeasure:   true,
	PhaseIsolate:   true,
	PhaseVerify:    true,
}

// ParseStatus validates a status string from the CLI.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !validStatuses[status] {
		return "", errors.Errorf("unknown status %q (want active, paused, or resolved)", s)
	}
	return status, nil
}

// ParsePhase validates a phase string from the CLI.
func ParsePhase(s string) (Phase, error) {
	phase := Phase(s)
	if !validPhases[phase] {
		return "", errors.Errorf("unknown phase %q (want reproduce, measure, isolate, or verify)", s)
	}
	return phase, nil
}

// Scenario captures what an investigation is chasing: the benchmark command
// that exhibits the regression and the baseline it is being compared against.
type Scenario struct {
	Command         string `json:"command"`
	BaselineVersion string `json:"baselineVersion,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// Investigation is a persisted investigation record.
type Investigation struct {
	SchemaVersion int       `json:"schemaVersion"`
	ID            string    `json:"id"`
	Status        Status    `json:"status"`
	Phase         Phase     `json:"phase"`
	Scenario      Scenario  `json:"scenario"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// GenerateID creates a sortable investigation ID: a UTC timestamp prefix
// followed by random hex.
func GenerateID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")

	b := make([]byte, 4)
	rand.Read(b)

	return timestamp + "-" + hex.EncodeToString(b)
}

// New creates an active investigation in the reproduce phase.
func New(scenario Scenario) Investigation {
	now := time.Now().UTC()
	return Investigation{
		SchemaVersion: CurrentSchemaVersion,
		ID:            GenerateID(),
		Status:        StatusActive,
		Phase:         PhaseReproduce,
		Scenario:      scenario,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate performs field-presence checks on a record and reports every
// problem at once.
func (inv Investigation) Validate() error {
	var result *multierror.Error

	if inv.SchemaVersion <= 0 {
		result = multierror.Append(result, errors.New("schemaVersion is required"))
	}
	if inv.SchemaVersion > CurrentSchemaVersion {
		result = multierror.Append(result,
			errors.Errorf("schemaVersion %d is newer than supported version %d", inv.SchemaVersion, CurrentSchemaVersion))
	}
	if inv.ID == "" {
		result = multierror.Append(result, errors.New("id is required"))
	}
	if !validStatuses[inv.Status] {
		result = multierror.Append(result, errors.Errorf("invalid status %q", inv.Status))
	}
	if !validPhases[inv.Phase] {
		result = multierror.Append(result, errors.Errorf("invalid phase %q", inv.Phase))
	}
	if inv.Scenario.Command == "" {
		result = multierror.Append(result, errors.New("scenario.command is required"))
	}

	return result.ErrorOrNil()
}

// SetPhase moves the investigation to a phase. Transitions are deliberately
// unconstrained; the record is a notebook, not a workflow engine.
func (inv *Investigation) SetPhase(phase Phase) error {
	if !validPhases[phase] {
		return errors.Errorf("invalid phase %q", phase)
	}
	inv.Phase = phase
	inv.UpdatedAt = time.Now().UTC()
	return nil
}

// SetStatus moves the investigation to a status.
func (inv *Investigation) SetStatus(status Status) error {
	if !validStatuses[status] {
		return errors.Errorf("invalid status %q", status)
	}
	inv.Status = status
	inv.UpdatedAt = time.Now().UTC()
	return nil
}
