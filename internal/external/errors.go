package external

import "fmt"

// OracleError is any failure to obtain a usable price: transport error,
// non-200 response, missing ticker or malformed payload.
type OracleError struct {
	Ticker string
	Err    error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("price oracle %s: %v", e.Ticker, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }
