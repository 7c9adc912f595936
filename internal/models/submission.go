package models

import "time"

// Submission is one journaled transaction that reached the network.
type Submission struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Chain       string    `json:"chain"`
	Kind        string    `json:"kind"`
	Label       string    `json:"label"`
	TxHash      string    `json:"txHash"`
	FromAddress string    `json:"fromAddress"`
	ToAddress   string    `json:"toAddress"`
	Value       string    `json:"value"` // wei, base 10
	Nonce       uint64    `json:"nonce"`
	Gas         uint64    `json:"gas"`
	GasPrice    string    `json:"gasPrice"`
	Status      string    `json:"status"` // "mined", "reverted" or "failed"
	BlockNumber *int64    `json:"blockNumber,omitempty"`
	Error       *string   `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

const (
	StatusMined    = "mined"
	StatusReverted = "reverted"
	StatusFailed   = "failed"
)
