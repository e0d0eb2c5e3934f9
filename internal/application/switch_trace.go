package application

import "context"

// SwitchPhase names a step of SwitchAccount, reported as the step starts.
type SwitchPhase string

const (
	SwitchPhaseTearingDown SwitchPhase = "tearing_down"
	SwitchPhaseAcquiring   SwitchPhase = "acquiring"
	SwitchPhaseApplying    SwitchPhase = "applying"
	SwitchPhaseSaving      SwitchPhase = "saving"
)

// SwitchTrace observes a single SwitchAccount call. Hooks run on the
// switching goroutine with the coordinator locked; they must not call back
// into it.
type SwitchTrace struct {
	Phase func(SwitchPhase)
}

type switchTraceKey struct{}

// WithSwitchTrace returns a ctx whose switches report to trace.
func WithSwitchTrace(ctx context.Context, trace *SwitchTrace) context.Context {
	return context.WithValue(ctx, switchTraceKey{}, trace)
}

func reportPhase(ctx context.Context, phase SwitchPhase) {
	trace, _ := ctx.Value(switchTraceKey{}).(*SwitchTrace)
	if trace != nil && trace.Phase != nil {
		trace.Phase(phase)
	}
}
