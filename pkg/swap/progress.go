package swap

import (
	"fmt"

	"sparkagent-launchpad/pkg/types"
)

// Stage is a named state of a swap orchestration
type Stage int

const (
	Idle Stage = iota
	CheckingAllowances
	Approving
	AwaitingSwap
	Confirmed
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case CheckingAllowances:
		return "checking allowances"
	case Approving:
		return "approving"
	case AwaitingSwap:
		return "awaiting swap confirmation"
	case Confirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Progress is the position of an orchestration in its pipeline.
// Step is only meaningful while Approving and is zero-based.
type Progress struct {
	Mode  types.TradingMode
	Stage Stage
	Step  int
	Steps int
}

// Cursor maps the progress onto the linear counter shown to users:
// bonding curve runs 0..6, external DEX runs 0..4.
func (p Progress) Cursor() int {
	switch p.Stage {
	case CheckingAllowances:
		return 1
	case Approving:
		return 2 + p.Step
	case AwaitingSwap:
		return 2 + p.Steps
	case Confirmed:
		return 3 + p.Steps
	default:
		return 0
	}
}

// Dismissible reports whether the progress view may be closed by
// interacting outside of it. Only a confirmed swap may.
func (p Progress) Dismissible() bool {
	return p.Stage == Confirmed
}

// Busy reports whether a new swap must be refused
func (p Progress) Busy() bool {
	return p.Stage != Idle
}

func (p Progress) String() string {
	if p.Stage == Approving {
		return fmt.Sprintf("%s (%d/%d)", p.Stage, p.Step+1, p.Steps)
	}
	return p.Stage.String()
}
