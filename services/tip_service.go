package services

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/wantam-ink/pledge-backend/models"
	"github.com/wantam-ink/pledge-backend/shared"
)

const (
	// SystemProgramID is the Solana System Program.
	SystemProgramID = "11111111111111111111111111111111"

	placeholderBlockhash  = "mock_blockhash"
	placeholderValidBlock = 12345

	systemTransferInstruction = 2
)

// TipService builds unsigned tip transfers. It holds no mutable state.
type TipService struct {
	recipient      string
	defaultPercent float64
	logger         *logrus.Entry
}

// NewTipService creates a builder paying tips to config.RecipientAddress.
func NewTipService(config shared.TipConfig) *TipService {
	logger := logrus.WithField("component", "TipService")
	recipient := strings.TrimSpace(config.RecipientAddress)
	if recipient == "" {
		recipient = shared.PlaceholderTipWallet
		logger.Warn("TIP_WALLET not configured, tips go to the placeholder wallet")
	}
	percent := config.DefaultPercent
	if percent <= 0 {
		percent = 5.0
	}
	return &TipService{recipient: recipient, defaultPercent: percent, logger: logger}
}

// Recipient returns the address tips are paid to.
func (s *TipService) Recipient() string {
	return s.recipient
}

// BuildTip computes floor(amountUnits * tipPercent / 100) and a transfer
// skeleton for it. A zero tipPercent selects the default.
func (s *TipService) BuildTip(senderKey string, amountUnits int64, tipPercent float64) (*models.TipTransaction, int64, error) {
	senderKey = strings.TrimSpace(senderKey)
	if senderKey == "" {
		return nil, 0, shared.NewValidationError(shared.CodeInvalidInput, "senderKey",
			"senderKey is required", "tip-service", "BuildTip")
	}
	if amountUnits <= 0 {
		return nil, 0, shared.NewValidationError(shared.CodeInvalidInput, "amountUnits",
			"amountUnits must be positive", "tip-service", "BuildTip")
	}
	if math.IsNaN(tipPercent) || math.IsInf(tipPercent, 0) {
		return nil, 0, shared.NewValidationError(shared.CodeInvalidInput, "tipPercent",
			"tipPercent must be a finite number", "tip-service", "BuildTip")
	}
	if tipPercent == 0 {
		tipPercent = s.defaultPercent
	}

	tip := math.Floor(float64(amountUnits) * tipPercent / 100)
	if tip >= math.MaxInt64 {
		return nil, 0, shared.NewValidationError(shared.CodeInvalidInput, "tipPercent",
			"tip amount overflows", "tip-service", "BuildTip")
	}
	tipAmount := int64(tip)
	if tipAmount <= 0 {
		return nil, 0, shared.NewValidationError(shared.CodeTipTooSmall, "amountUnits",
			fmt.Sprintf("tip of %.2f%% on %d units rounds to zero", tipPercent, amountUnits),
			"tip-service", "BuildTip")
	}

	tx := &models.TipTransaction{
		RecentBlockhash:      placeholderBlockhash,
		LastValidBlockHeight: placeholderValidBlock,
		FeePayer:             senderKey,
		Instructions: []models.TipInstruction{{
			ProgramID: SystemProgramID,
			Keys: []models.AccountMeta{
				{PubKey: senderKey, IsSigner: true, IsWritable: true},
				{PubKey: s.recipient, IsSigner: false, IsWritable: true},
			},
			Data: encodeTransfer(uint64(tipAmount)),
		}},
	}

	s.logger.WithFields(logrus.Fields{
		"sender":       senderKey,
		"amount_units": amountUnits,
		"tip_percent":  tipPercent,
		"tip_amount":   tipAmount,
	}).Info("Built tip transaction")

	return tx, tipAmount, nil
}

// encodeTransfer returns the System Program transfer data: u32 LE index, u64 LE lamports.
func encodeTransfer(lamports uint64) string {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferInstruction)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return base64.StdEncoding.EncodeToString(data)
}
