package entity

import (
	"time"
)

// TxKind distinguishes the explorer history a transaction came from
type TxKind string

const (
	TxKindNormal   TxKind = "normal"
	TxKindInternal TxKind = "internal"
)

// ExplorerTx represents a transaction record returned by the block explorer
type ExplorerTx struct {
	Hash        string    `json:"hash"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Value       string    `json:"value"`
	BlockNumber string    `json:"block_number"`
	Timestamp   time.Time `json:"timestamp"`
	Kind        TxKind    `json:"kind"`
}
