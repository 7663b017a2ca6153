package command

import (
	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/value"
)

// BillOperatingMode reports which optional stages of a bill validator's
// accept pipeline are in use.
type BillOperatingMode struct {
	StackerAvailable bool
	EscrowAvailable  bool
}

// RequestBillOperatingModeCommand (header 152) reads whether the bill
// validator's stacker and escrow stage are available for use.
type RequestBillOperatingModeCommand struct{}

func (RequestBillOperatingModeCommand) Header() packet.Header {
	return packet.HeaderRequestBillOperatingMode
}
func (RequestBillOperatingModeCommand) Data() []byte { return nil }
func (RequestBillOperatingModeCommand) ParseResponse(payload []byte) (BillOperatingMode, error) {
	if len(payload) != 1 {
		return BillOperatingMode{}, errDataLengthMismatch(1, len(payload))
	}
	return BillOperatingMode{
		StackerAvailable: payload[0]&0x01 != 0,
		EscrowAvailable:  payload[0]&0x02 != 0,
	}, nil
}

// ModifyBillOperatingModeCommand (header 153) selects whether the
// validator uses its stacker and/or holds bills in escrow before they are
// routed.
type ModifyBillOperatingModeCommand struct {
	UseStacker bool
	UseEscrow  bool
}

func (ModifyBillOperatingModeCommand) Header() packet.Header {
	return packet.HeaderModifyBillOperatingMode
}
func (c ModifyBillOperatingModeCommand) Data() []byte {
	var b byte
	if c.UseStacker {
		b |= 0x01
	}
	if c.UseEscrow {
		b |= 0x02
	}
	return []byte{b}
}
func (ModifyBillOperatingModeCommand) ParseResponse(payload []byte) (struct{}, error) {
	return ackCommand(payload)
}

// RequestBillIdCommand (header 157) reads the currency token identifying
// the bill type accepted at one bill position.
type RequestBillIdCommand struct {
	BillPosition byte
}

func (RequestBillIdCommand) Header() packet.Header { return packet.HeaderRequestBillId }
func (c RequestBillIdCommand) Data() []byte         { return []byte{c.BillPosition} }
func (RequestBillIdCommand) ParseResponse(payload []byte) (value.CurrencyToken, error) {
	token, err := value.ParseCurrencyToken(string(payload))
	if err != nil {
		return value.CurrencyToken{}, ParseResponseError{Reason: err.Error()}
	}
	return token, nil
}
