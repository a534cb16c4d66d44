package tracestack

import "github.com/pkg/errors"

var (
	// ErrEmptyStack is returned by Pop when only one frame remains.
	ErrEmptyStack = errors.New("tracestack: cannot pop the only remaining frame")

	// ErrDynamicCallSite is returned by PushCallSite for a Dynamic call
	// site, which has no locally known callee to descend into.
	ErrDynamicCallSite = errors.New("tracestack: cannot push a dynamic call site")

	// ErrIndirectCallSite is returned by PushCallSite for an Indirect call
	// site; the caller must resolve a FunctionSymbol and use PushFunction.
	ErrIndirectCallSite = errors.New("tracestack: cannot push an indirect call site, resolve a function first")
)
