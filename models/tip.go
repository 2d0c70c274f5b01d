package models

// TipRequest is the body of the tip builder endpoint. TipPercent is optional.
type TipRequest struct {
	SenderKey   string   `json:"senderKey"`
	AmountUnits int64    `json:"amountUnits"`
	TipPercent  *float64 `json:"tipPercent,omitempty"`
}

// TipResponse pairs the unsigned transaction skeleton with the computed tip.
type TipResponse struct {
	Transaction *TipTransaction `json:"transaction"`
	TipAmount   int64           `json:"tipAmount"`
}

// TipTransaction is an unsigned transfer skeleton. Signing and broadcast
// happen in the sender's wallet.
type TipTransaction struct {
	RecentBlockhash      string           `json:"blockhash"`
	LastValidBlockHeight uint64           `json:"lastValidBlockHeight"`
	FeePayer             string           `json:"feePayer"`
	Instructions         []TipInstruction `json:"instructions"`
}

// TipInstruction is a single program invocation.
type TipInstruction struct {
	ProgramID string        `json:"programId"`
	Keys      []AccountMeta `json:"keys"`
	Data      string        `json:"data"`
}

// AccountMeta describes an account referenced by an instruction.
type AccountMeta struct {
	PubKey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}
