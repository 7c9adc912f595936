package ethereum

import "fmt"

// RPCError is any failure from the JSON-RPC boundary: connection refused,
// reverted call, insufficient funds, underpriced transaction.
type RPCError struct {
	Op  string
	Err error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("chain rpc: %s: %v", e.Op, e.Err)
}

func (e *RPCError) Unwrap() error { return e.Err }
