package command

import (
	"testing"
	"time"

	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/value"
	"github.com/stretchr/testify/require"
)

func TestSimplePollRoundTrip(t *testing.T) {
	var c SimplePollCommand
	require.Equal(t, packet.HeaderSimplePoll, c.Header())
	require.Nil(t, c.Data())
	_, err := c.ParseResponse(nil)
	require.NoError(t, err)
	_, err = c.ParseResponse([]byte{1})
	require.Error(t, err)
}

func TestRequestManufacturerIdTrimsPadding(t *testing.T) {
	var c RequestManufacturerIdCommand
	got, err := c.ParseResponse([]byte("ACME   "))
	require.NoError(t, err)
	require.Equal(t, "ACME", got)
}

func TestRequestEquipmentCategoryIdDecodes(t *testing.T) {
	var c RequestEquipmentCategoryIdCommand
	got, err := c.ParseResponse([]byte("CoinAcceptor"))
	require.NoError(t, err)
	require.Equal(t, packet.CategoryCoinAcceptor, got)
}

func TestRequestSerialNumberWireOrder(t *testing.T) {
	var c RequestSerialNumberCommand
	got, err := c.ParseResponse([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	require.Equal(t, SerialCode{LSB: 0x01, Mid: 0x02, MSB: 0x03}, got)
	require.Equal(t, uint32(0x030201), got.Value())
}

func TestModifyInhibitStatusSendsMaskBytes(t *testing.T) {
	mask := value.NewBitMask(16)
	require.NoError(t, mask.Set(0, true))
	require.NoError(t, mask.Set(9, true))
	cmd := ModifyInhibitStatusCommand{Mask: mask}
	require.Equal(t, mask.Bytes(), cmd.Data())
}

func TestRequestPollingPriorityUnitZeroMeansNotRequired(t *testing.T) {
	var c RequestPollingPriorityCommand
	got, err := c.ParseResponse([]byte{0, 0})
	require.NoError(t, err)
	require.False(t, got.Required())

	got, err = c.ParseResponse([]byte{byte(PollingUnitSeconds), 5})
	require.NoError(t, err)
	require.True(t, got.Required())
}

func TestPollingPriorityAsDuration(t *testing.T) {
	d, ok := PollingPriority{Unit: PollingUnitSeconds, Value: 2}.AsDuration()
	require.True(t, ok)
	require.Equal(t, 2*time.Second, d)

	d, ok = PollingPriority{Unit: PollingUnitX10Ms, Value: 5}.AsDuration()
	require.True(t, ok)
	require.Equal(t, 50*time.Millisecond, d)

	_, ok = PollingPriority{Unit: PollingUnitSpecial, Value: 7}.AsDuration()
	require.False(t, ok)
}

func TestReadBufferedCreditOrErrorCodesWrapsValueParser(t *testing.T) {
	var c ReadBufferedCreditOrErrorCodesCommand
	payload := []byte{3, 10, 0, 20, 0, 30, 0, 0, 0, 0, 0}
	got, err := c.ParseResponse(payload)
	require.NoError(t, err)
	require.Equal(t, byte(3), got.EventCounter)
}

func TestEnableHopperSendsUnlockCode(t *testing.T) {
	c := EnableHopperCommand{Enable: true}
	require.Equal(t, []byte{0xA5}, c.Data())
	c = EnableHopperCommand{Enable: false}
	require.Equal(t, []byte{0}, c.Data())
}

func TestAddressPollReturnsRespondingAddress(t *testing.T) {
	var c AddressPollCommand
	got, err := c.ParseResponse([]byte{17})
	require.NoError(t, err)
	require.Equal(t, byte(17), got)
}

func TestEncryptionStubsRefuseToParse(t *testing.T) {
	var c RequestEncryptionSupportCommand
	_, err := c.ParseResponse([]byte{1})
	require.ErrorIs(t, err, ErrUnsupportedCommand)
}

func TestCommandSetCompatibility(t *testing.T) {
	require.True(t, HopperCommandSet.IsCompatibleWith(packet.CategoryPayout))
	require.False(t, HopperCommandSet.IsCompatibleWith(packet.CategoryBillValidator))
	require.True(t, ValidatorCommandSet.IsCompatibleWith(packet.CategoryBillValidator))
	require.True(t, CoreCommandSet.IsCompatibleWith(packet.CategoryDebug))
}
