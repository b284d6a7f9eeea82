package ctxlog

import (
	stderrs "errors"
	"fmt"
	"runtime"
	"strings"

	smerrors "github.com/Station-Manager/errors"
	pkgerrors "github.com/pkg/errors"
)

// ErrorInfo is the snapshot of an error attached with Exc. It is taken when
// Exc is called, so later changes to the error value do not show.
type ErrorInfo struct {
	// Type is the Go type of the outermost error, e.g. "*fs.PathError".
	Type    string
	Message string
	// Chain holds cause messages, outermost first.
	Chain []string
	// Ops holds the operation of each chain link, "" where unknown.
	Ops    []string
	Root   string
	RootOp string
	// Stack holds "function\n\tfile:line" frames, innermost first.
	Stack []string
}

// History joins the cause chain into one line.
func (e *ErrorInfo) History() string {
	if e == nil {
		return ""
	}
	return joinChain(e.Chain)
}

func (e *ErrorInfo) clone() *ErrorInfo {
	if e == nil {
		return nil
	}
	c := *e
	c.Chain = append([]string(nil), e.Chain...)
	c.Ops = append([]string(nil), e.Ops...)
	c.Stack = append([]string(nil), e.Stack...)
	return &c
}

// newErrorInfo snapshots err. skip counts the frames above the caller of
// newErrorInfo that should not appear in a captured stack.
func newErrorInfo(err error, skip int) *ErrorInfo {
	if err == nil {
		return nil
	}
	chain, ops, root, rootOp := buildErrorChain(err)
	info := &ErrorInfo{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Chain:   chain,
		Ops:     ops,
		Root:    root,
		RootOp:  rootOp,
	}
	if st := stackOf(err); st != nil {
		info.Stack = formatPkgStack(st)
	} else {
		info.Stack = callers(skip + 1)
	}
	return info
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// stackOf returns the deepest pkg/errors stack in err's chain.
func stackOf(err error) pkgerrors.StackTrace {
	var found pkgerrors.StackTrace
	for depth := 0; err != nil && depth < maxChainDepth; depth++ {
		if st, ok := err.(stackTracer); ok {
			found = st.StackTrace()
		}
		err = stderrs.Unwrap(err)
	}
	return found
}

func formatPkgStack(st pkgerrors.StackTrace) []string {
	out := make([]string, 0, len(st))
	for _, f := range st {
		out = append(out, fmt.Sprintf("%+s:%d", f, f))
	}
	return out
}

const maxStackFrames = 32

// callers captures the stack starting skip frames above its caller.
func callers(skip int) []string {
	pcs := make([]uintptr, maxStackFrames)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]string, 0, n)
	for {
		f, more := frames.Next()
		out = append(out, fmt.Sprintf("%s\n\t%s:%d", f.Function, f.File, f.Line))
		if !more {
			break
		}
	}
	return out
}

const maxChainDepth = 50

// buildErrorChain walks an error's cause chain and returns:
//   - chain: outermost -> innermost error messages
//   - ops: operation identifiers for DetailedError links ("" if not available)
//   - root: the innermost error message
//   - rootOp: the innermost operation identifier if available
//
// DetailedError links are followed through Cause(), every other link
// through stdlib errors.Unwrap. Repeated messages are recorded once
// and the walk stops at maxChainDepth.
func buildErrorChain(err error) (chain []string, ops []string, root string, rootOp string) {
	visited := 0
	seen := map[string]bool{}

	for err != nil && visited < maxChainDepth {
		visited++

		// only this link: errors.As would skip the wrappers above a
		// DetailedError and has no depth bound
		if dErr, ok := err.(*smerrors.DetailedError); ok && dErr != nil {
			msg := dErr.Error()
			seen[msg] = true
			chain = append(chain, msg)
			ops = append(ops, string(dErr.Op()))
			err = dErr.Cause()
			continue
		}

		// wrappers that only add a stack repeat their cause's message;
		// keep unwrapping, the depth bound stops real cycles
		msg := err.Error()
		if !seen[msg] {
			seen[msg] = true
			chain = append(chain, msg)
			ops = append(ops, "")
		}

		// errors.Join and friends: follow the first branch only
		if multi, ok := err.(interface{ Unwrap() []error }); ok {
			errs := multi.Unwrap()
			if len(errs) == 0 {
				break
			}
			err = errs[0]
			continue
		}
		err = stderrs.Unwrap(err)
	}

	if len(chain) > 0 {
		root = chain[len(chain)-1]
	}
	if len(ops) > 0 {
		rootOp = ops[len(ops)-1]
	}
	return
}

// joinChain returns a single string for the error chain separated by " -> ".
func joinChain(chain []string) string {
	if len(chain) == 0 {
		return ""
	}
	return strings.Join(chain, " -> ")
}
