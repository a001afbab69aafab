package authz

import (
	"context"
	"fmt"

	"github.com/veridianhq/veridian/internal/iam/domain"
)

// Error is the typed denial raised by the wrapper. It carries the decision's
// error detail so transports can map it onto the coded error contract.
type Error struct {
	Detail *domain.ErrorDetail
}

func (e *Error) Error() string {
	if e.Detail == nil {
		return "authz: denied"
	}
	return fmt.Sprintf("authz: denied (%s)", e.Detail.Code)
}

// ArgOverride is what PreProcess may return to rewrite the positional
// arguments before the operation runs. It is a tagged union: a full override
// replaces the argument list wholesale, a partial override merges sparse
// index/value pairs into the original list.
type ArgOverride struct {
	full    []any
	fullSet bool
	partial map[int]any
}

// FullOverride replaces the positional arguments wholesale.
func FullOverride(args ...any) *ArgOverride {
	return &ArgOverride{full: args, fullSet: true}
}

// PartialOverride merges the given index/value pairs into the original
// arguments. Indices outside the original list are ignored.
func PartialOverride(m map[int]any) *ArgOverride {
	return &ArgOverride{partial: m}
}

func (o *ArgOverride) apply(args []any) []any {
	if o == nil {
		return args
	}
	if o.fullSet {
		return o.full
	}
	merged := make([]any, len(args))
	copy(merged, args)
	for i, v := range o.partial {
		if i >= 0 && i < len(merged) {
			merged[i] = v
		}
	}
	return merged
}

// Wrapped is a reusable call-wrapping protocol around one service operation.
// The lifecycle is a hard contract other services compose against:
//
//	authorize -> PreProcess -> Do -> ConstraintCheck (non-root only) -> PostProcess
//
// PostProcess exists only for side effects (audit logging); its return is
// discarded and the caller always receives Do's result.
type Wrapped struct {
	Engine *Engine

	// PreProcess may rewrite the positional arguments. Optional.
	PreProcess func(ctx context.Context, args []any) (*ArgOverride, error)

	// Do performs the operation. Required.
	Do func(ctx context.Context, args []any) (any, error)

	// ConstraintCheck is a post-hoc tenant-scoped check applied to the result
	// for non-root callers. A non-nil detail discards the result. Optional.
	ConstraintCheck func(ctx context.Context, result any) *domain.ErrorDetail

	// PostProcess runs after a successful constraint check. Optional.
	PostProcess func(ctx context.Context, result any)
}

// Call runs the protocol with a scope-only pre-check. Tenant-scoped
// enforcement, when needed, is handled by ConstraintCheck.
func (w *Wrapped) Call(ctx context.Context, p *domain.Principal, required []string, args ...any) (any, error) {
	return w.call(ctx, p, required, "", args)
}

// CallWithTenant runs the protocol with an explicit target tenant in the
// authorization pre-check.
func (w *Wrapped) CallWithTenant(ctx context.Context, p *domain.Principal, required []string, targetTenantID string, args ...any) (any, error) {
	return w.call(ctx, p, required, targetTenantID, args)
}

func (w *Wrapped) call(ctx context.Context, p *domain.Principal, required []string, targetTenantID string, args []any) (any, error) {
	decision := w.Engine.Decide(p, required, targetTenantID)
	if !decision.Authorized {
		return nil, &Error{Detail: decision.Err}
	}

	if w.PreProcess != nil {
		override, err := w.PreProcess(ctx, args)
		if err != nil {
			return nil, err
		}
		args = override.apply(args)
	}

	result, err := w.Do(ctx, args)
	if err != nil {
		return nil, err
	}

	// Root bypasses all secondary constraints.
	if !w.Engine.IsRoot(p) && w.ConstraintCheck != nil {
		if detail := w.ConstraintCheck(ctx, result); detail != nil {
			return nil, &Error{Detail: detail}
		}
	}

	if w.PostProcess != nil {
		w.PostProcess(ctx, result)
	}

	return result, nil
}
