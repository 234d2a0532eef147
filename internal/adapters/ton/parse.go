package ton

import (
	"encoding/base64"
	"errors"
	"fmt"

	"deposit-verifier/internal/models"

	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Operation codes of the TEP-74 jetton standard, plus the zero opcode that
// marks a plain text comment.
const (
	opTextComment        = 0x00000000
	opJettonTransfer     = 0x0f8a7ea5
	opJettonNotification = 0x7362d09c
	opJettonInternal     = 0x178d4519
)

var errUnknownOpcode = errors.New("unrecognized message opcode")

// parsedBody is the outcome of decoding one inbound message body cell.
type parsedBody struct {
	// transfer is non-nil when a jetton operation was recognized.
	transfer *models.TokenTransfer
	// comment holds the text comment of a plain native transfer.
	comment string
}

// parseMessageBody decodes a base64 BOC message body and dispatches on the
// leading 32-bit opcode.
func parseMessageBody(bodyB64 string, msg *Message, decimals int32) (*parsedBody, error) {
	data, err := base64.StdEncoding.DecodeString(bodyB64)
	if err != nil {
		return nil, fmt.Errorf("message body is not valid base64: %w", err)
	}

	body, err := cell.FromBOC(data)
	if err != nil {
		return nil, fmt.Errorf("message body is not a valid cell: %w", err)
	}

	slice := body.BeginParse()
	op, err := slice.LoadUInt(32)
	if err != nil {
		return nil, fmt.Errorf("message body has no opcode: %w", err)
	}

	switch op {
	case opTextComment:
		comment, err := slice.LoadStringSnake()
		if err != nil {
			return nil, fmt.Errorf("failed to read comment: %w", err)
		}
		return &parsedBody{comment: comment}, nil

	case opJettonTransfer:
		if _, err := slice.LoadUInt(64); err != nil { // query id
			return nil, err
		}
		amount, err := slice.LoadBigCoins()
		if err != nil {
			return nil, fmt.Errorf("failed to read jetton amount: %w", err)
		}
		destination, err := slice.LoadAddr()
		if err != nil {
			return nil, fmt.Errorf("failed to read jetton destination: %w", err)
		}
		return &parsedBody{transfer: &models.TokenTransfer{
			TokenAddress: msg.Source,
			Decimals:     decimals,
			From:         msg.Source,
			To:           destination.String(),
			Value:        amount.String(),
			Confidence:   models.ConfidenceParsed,
		}}, nil

	case opJettonNotification:
		if _, err := slice.LoadUInt(64); err != nil { // query id
			return nil, err
		}
		amount, err := slice.LoadBigCoins()
		if err != nil {
			return nil, fmt.Errorf("failed to read jetton amount: %w", err)
		}
		sender, err := slice.LoadAddr()
		if err != nil {
			return nil, fmt.Errorf("failed to read jetton sender: %w", err)
		}
		return &parsedBody{transfer: &models.TokenTransfer{
			TokenAddress: msg.Source,
			Decimals:     decimals,
			From:         sender.String(),
			To:           msg.Destination,
			Value:        amount.String(),
			Confidence:   models.ConfidenceParsed,
		}}, nil

	case opJettonInternal:
		if _, err := slice.LoadUInt(64); err != nil { // query id
			return nil, err
		}
		amount, err := slice.LoadBigCoins()
		if err != nil {
			return nil, fmt.Errorf("failed to read jetton amount: %w", err)
		}
		from, err := slice.LoadAddr()
		if err != nil {
			return nil, fmt.Errorf("failed to read jetton source: %w", err)
		}
		return &parsedBody{transfer: &models.TokenTransfer{
			TokenAddress: msg.Source,
			Decimals:     decimals,
			From:         from.String(),
			To:           msg.Destination,
			Value:        amount.String(),
			Confidence:   models.ConfidenceParsed,
		}}, nil

	default:
		return nil, errUnknownOpcode
	}
}
