package errors

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
)

// Kind is a stable, machine-readable failure category.
type Kind int

const (
	KindInternal Kind = iota
	KindUsage
	KindParse
	KindConnect
	KindCredMissing // nothing was ever presented, unlike KindAuth
	KindAuth
	KindRPC
)

// RPC is set only for KindRPC and carries the node's error object verbatim.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	RPC     *btcjson.RPCError
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Cause.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func FromRPC(rpcErr *btcjson.RPCError) *Error {
	return &Error{Kind: KindRPC, Message: rpcErr.Message, RPC: rpcErr}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	if cliErr, ok := As(err); ok {
		return cliErr.Kind == kind
	}
	return false
}

// ExitCode is the magnitude of the node's error code for KindRPC, 1 for everything local.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if cliErr, ok := As(err); ok && cliErr.RPC != nil {
		code := int(cliErr.RPC.Code)
		if code < 0 {
			code = -code
		}
		if code != 0 {
			return code
		}
	}
	return 1
}

// In wait mode a missing cookie counts as node-not-yet-ready; rejected
// credentials and node-reported errors are never retried.
func IsRetryable(err error, wait bool) bool {
	if !wait {
		return false
	}
	cliErr, ok := As(err)
	if !ok {
		return false
	}
	return cliErr.Kind == KindConnect || cliErr.Kind == KindCredMissing
}
