package packet

import "fmt"

// Header is the wire header byte. Its semantics are fixed by the ccTalk
// specification: every header implies both a request payload shape and a
// reply payload shape. Unrecognised byte values are rejected at the codec
// boundary with ErrInvalidHeader rather than silently accepted.
type Header uint8

const (
	HeaderReply Header = 0
	HeaderResetDevice Header = 1
	HeaderRequestCommsStatusVariables Header = 2
	HeaderClearCommsStatusVariable Header = 3
	HeaderRequestCommsRevision Header = 4
	HeaderNAK Header = 5
	HeaderBusy Header = 6
	HeaderRequestServiceStatus Header = 104
	HeaderDataStream Header = 105
	HeaderRequestEscrowStatus Header = 106
	HeaderOperateEscrow Header = 107
	HeaderRequestEncryptedMonetaryId Header = 108
	HeaderRequestEncryptedHopperStatus Header = 109
	HeaderSwitchEncryptionKey Header = 110
	HeaderRequestEncryptionSupport Header = 111
	HeaderReadEncryptedEvents Header = 112
	HeaderSwitchBaudRate Header = 113
	HeaderRequestUsbId Header = 114
	HeaderRequestRealTimeClock Header = 115
	HeaderModifyRealTimeClock Header = 116
	HeaderRequestCashBoxValue Header = 117
	HeaderModifyCashBoxValue Header = 118
	HeaderRequestHopperBalance Header = 119
	HeaderModifyHopperBalance Header = 120
	HeaderPurgeHopper Header = 121
	HeaderReqestErrorStatus Header = 122
	HeaderRequestActivityRegister Header = 123
	HeaderVerifyMoneyOut Header = 124
	HeaderPayMoneyOut Header = 125
	HeaderClearMoneyCounters Header = 126
	HeaderRequestMoneyOut Header = 127
	HeaderRequestMoneyIn Header = 128
	HeaderReadBarCodeData Header = 129
	HeaderRequestIndexedHopperDispenseCount Header = 130
	HeaderRequestHopperCoinValue Header = 131
	HeaderEmergencyStopValue Header = 132
	HeaderRequestHopperPollingValue Header = 133
	HeaderDispenseHopperValue Header = 134
	HeaderSetAcceptLimit Header = 135
	HeaderStoreEncryptionMode Header = 136
	HeaderSwitchEncryptionMode Header = 137
	HeaderFinishFirmwareUpgrade Header = 138
	HeaderBeginFirmwareUpgrade Header = 139
	HeaderUploadFirmware Header = 140
	HeaderRequestFirmwareUpgradeCapability Header = 141
	HeaderFinishBillTableUpgrade Header = 142
	HeaderBeginBillTableUpgrade Header = 143
	HeaderUploadBillTables Header = 144
	HeaderRequestCurrencyRevision Header = 145
	HeaderOperateBiDirectionalMotors Header = 146
	HeaderPerformStackerCycle Header = 147
	HeaderReadOptoVoltages Header = 148
	HeaderRequestIndividualErrorCounter Header = 149
	HeaderRequestIndividualAcceptCounter Header = 150
	HeaderTestLamps Header = 151
	HeaderRequestBillOperatingMode Header = 152
	HeaderModifyBillOperatingMode Header = 153
	HeaderRouteBill Header = 154
	HeaderRequestBillPosition Header = 155
	HeaderRequestCountryScalingFactor Header = 156
	HeaderRequestBillId Header = 157
	HeaderModifyBillId Header = 158
	HeaderReadBufferedBillEvents Header = 159
	HeaderRequestCipherKey Header = 160
	HeaderPumpRNG Header = 161
	HeaderModifyInhibitAndOverrideRegisters Header = 162
	HeaderTestHopper Header = 163
	HeaderEnableHopper Header = 164
	HeaderModifyVariableSet Header = 165
	HeaderRequestHopperStatus Header = 166
	HeaderDispenseHopperCoins Header = 167
	HeaderRequestHopperDispenseCount Header = 168
	HeaderRequestAddressMode Header = 169
	HeaderRequestBaseYear Header = 170
	HeaderRequestHopperCoin Header = 171
	HeaderEmergencyStop Header = 172
	HeaderRequestThermistorReading Header = 173
	HeaderRequestPayoutFloat Header = 174
	HeaderModifyPayoutFloat Header = 175
	HeaderRequestAlarmCounter Header = 176
	HeaderHandheldFunction Header = 177
	HeaderRequestBankSelect Header = 178
	HeaderModifyBankSelect Header = 179
	HeaderRequestSecuritySetting Header = 180
	HeaderModifySecuritySetting Header = 181
	HeaderDownloadCalibrationInfo Header = 182
	HeaderUploadWindowData Header = 183
	HeaderRequestCoinId Header = 184
	HeaderModifyCoinId Header = 185
	HeaderRequestPayoutCapacity Header = 186
	HeaderModifyPayoutCapacity Header = 187
	HeaderRequestDefaultSorterPath Header = 188
	HeaderModifyDefaultSorterPath Header = 189
	HeaderKeypadControl Header = 191
	HeaderRequestBuildCode Header = 192
	HeaderRequestFraudCounter Header = 193
	HeaderRequestRejectCounter Header = 194
	HeaderRequestLastModificationDate Header = 195
	HeaderRequestCreationDate Header = 196
	HeaderCalculateROMChecksum Header = 197
	HeaderCountersToEEPROM Header = 198
	HeaderConfigurationToEEPROM Header = 199
	HeaderACMIUnencryptedProductId Header = 200
	HeaderRequestTeachStatus Header = 201
	HeaderTeachModeControl Header = 202
	HeaderDisplayControl Header = 203
	HeaderMeterControl Header = 204
	HeaderRequestPayoutAbsoluteCount Header = 207
	HeaderModifyPayoutAbsoluteCount Header = 208
	HeaderRequestSorterPaths Header = 209
	HeaderModifySorterPaths Header = 210
	HeaderPowerManagementControl Header = 211
	HeaderRequestCoinPosition Header = 212
	HeaderRequestOptionFlags Header = 213
	HeaderWriteDataBlock Header = 214
	HeaderReadDataBlock Header = 215
	HeaderRequestDataStorageAvailability Header = 216
	HeaderRequestPayoutStatus Header = 217
	HeaderEnterPinNumber Header = 218
	HeaderEnterNewPinNumber Header = 219
	HeaderACMIEncryptedData Header = 220
	HeaderRequestSorterOverrideStatus Header = 221
	HeaderModifySorterOverrideStatus Header = 222
	HeaderModifyEncryptedInhibitAndOverrideRegisters Header = 223
	HeaderRequestEncryptedProductId Header = 224
	HeaderRequestAcceptCounter Header = 225
	HeaderRequestInsertionCounter Header = 226
	HeaderRequestMasterInhibitStatus Header = 227
	HeaderModifyMasterInhibitStatus Header = 228
	HeaderReadBufferedCreditOrErrorCodes Header = 229
	HeaderRequestInhibitStatus Header = 230
	HeaderModifyInhibitStatus Header = 231
	HeaderPerformSelfCheck Header = 232
	HeaderLatchOutputLines Header = 233
	HeaderSendDHPK Header = 234
	HeaderReadDHPK Header = 235
	HeaderReadOptoStates Header = 236
	HeaderReadInputLines Header = 237
	HeaderTestOutputLines Header = 238
	HeaderOperateMotors Header = 239
	HeaderTestSolenoids Header = 240
	HeaderRequestSoftwareRevision Header = 241
	HeaderRequestSerialNumber Header = 242
	HeaderRequestDatabaseVersion Header = 243
	HeaderRequestProductCode Header = 244
	HeaderRequestEquipementCategoryId Header = 245
	HeaderRequestManufacturerId Header = 246
	HeaderRequestVariableSet Header = 247
	HeaderRequestStatus Header = 248
	HeaderRequestPollingPriority Header = 249
	HeaderAddressRandom Header = 250
	HeaderAddressChange Header = 251
	HeaderAddressClash Header = 252
	HeaderAddressPoll Header = 253
	HeaderSimplePoll Header = 254
)

var headerNames = map[Header]string{
	HeaderReply: "Reply",
	HeaderResetDevice: "ResetDevice",
	HeaderRequestCommsStatusVariables: "RequestCommsStatusVariables",
	HeaderClearCommsStatusVariable: "ClearCommsStatusVariable",
	HeaderRequestCommsRevision: "RequestCommsRevision",
	HeaderNAK: "NAK",
	HeaderBusy: "Busy",
	HeaderRequestServiceStatus: "RequestServiceStatus",
	HeaderDataStream: "DataStream",
	HeaderRequestEscrowStatus: "RequestEscrowStatus",
	HeaderOperateEscrow: "OperateEscrow",
	HeaderRequestEncryptedMonetaryId: "RequestEncryptedMonetaryId",
	HeaderRequestEncryptedHopperStatus: "RequestEncryptedHopperStatus",
	HeaderSwitchEncryptionKey: "SwitchEncryptionKey",
	HeaderRequestEncryptionSupport: "RequestEncryptionSupport",
	HeaderReadEncryptedEvents: "ReadEncryptedEvents",
	HeaderSwitchBaudRate: "SwitchBaudRate",
	HeaderRequestUsbId: "RequestUsbId",
	HeaderRequestRealTimeClock: "RequestRealTimeClock",
	HeaderModifyRealTimeClock: "ModifyRealTimeClock",
	HeaderRequestCashBoxValue: "RequestCashBoxValue",
	HeaderModifyCashBoxValue: "ModifyCashBoxValue",
	HeaderRequestHopperBalance: "RequestHopperBalance",
	HeaderModifyHopperBalance: "ModifyHopperBalance",
	HeaderPurgeHopper: "PurgeHopper",
	HeaderReqestErrorStatus: "ReqestErrorStatus",
	HeaderRequestActivityRegister: "RequestActivityRegister",
	HeaderVerifyMoneyOut: "VerifyMoneyOut",
	HeaderPayMoneyOut: "PayMoneyOut",
	HeaderClearMoneyCounters: "ClearMoneyCounters",
	HeaderRequestMoneyOut: "RequestMoneyOut",
	HeaderRequestMoneyIn: "RequestMoneyIn",
	HeaderReadBarCodeData: "ReadBarCodeData",
	HeaderRequestIndexedHopperDispenseCount: "RequestIndexedHopperDispenseCount",
	HeaderRequestHopperCoinValue: "RequestHopperCoinValue",
	HeaderEmergencyStopValue: "EmergencyStopValue",
	HeaderRequestHopperPollingValue: "RequestHopperPollingValue",
	HeaderDispenseHopperValue: "DispenseHopperValue",
	HeaderSetAcceptLimit: "SetAcceptLimit",
	HeaderStoreEncryptionMode: "StoreEncryptionMode",
	HeaderSwitchEncryptionMode: "SwitchEncryptionMode",
	HeaderFinishFirmwareUpgrade: "FinishFirmwareUpgrade",
	HeaderBeginFirmwareUpgrade: "BeginFirmwareUpgrade",
	HeaderUploadFirmware: "UploadFirmware",
	HeaderRequestFirmwareUpgradeCapability: "RequestFirmwareUpgradeCapability",
	HeaderFinishBillTableUpgrade: "FinishBillTableUpgrade",
	HeaderBeginBillTableUpgrade: "BeginBillTableUpgrade",
	HeaderUploadBillTables: "UploadBillTables",
	HeaderRequestCurrencyRevision: "RequestCurrencyRevision",
	HeaderOperateBiDirectionalMotors: "OperateBiDirectionalMotors",
	HeaderPerformStackerCycle: "PerformStackerCycle",
	HeaderReadOptoVoltages: "ReadOptoVoltages",
	HeaderRequestIndividualErrorCounter: "RequestIndividualErrorCounter",
	HeaderRequestIndividualAcceptCounter: "RequestIndividualAcceptCounter",
	HeaderTestLamps: "TestLamps",
	HeaderRequestBillOperatingMode: "RequestBillOperatingMode",
	HeaderModifyBillOperatingMode: "ModifyBillOperatingMode",
	HeaderRouteBill: "RouteBill",
	HeaderRequestBillPosition: "RequestBillPosition",
	HeaderRequestCountryScalingFactor: "RequestCountryScalingFactor",
	HeaderRequestBillId: "RequestBillId",
	HeaderModifyBillId: "ModifyBillId",
	HeaderReadBufferedBillEvents: "ReadBufferedBillEvents",
	HeaderRequestCipherKey: "RequestCipherKey",
	HeaderPumpRNG: "PumpRNG",
	HeaderModifyInhibitAndOverrideRegisters: "ModifyInhibitAndOverrideRegisters",
	HeaderTestHopper: "TestHopper",
	HeaderEnableHopper: "EnableHopper",
	HeaderModifyVariableSet: "ModifyVariableSet",
	HeaderRequestHopperStatus: "RequestHopperStatus",
	HeaderDispenseHopperCoins: "DispenseHopperCoins",
	HeaderRequestHopperDispenseCount: "RequestHopperDispenseCount",
	HeaderRequestAddressMode: "RequestAddressMode",
	HeaderRequestBaseYear: "RequestBaseYear",
	HeaderRequestHopperCoin: "RequestHopperCoin",
	HeaderEmergencyStop: "EmergencyStop",
	HeaderRequestThermistorReading: "RequestThermistorReading",
	HeaderRequestPayoutFloat: "RequestPayoutFloat",
	HeaderModifyPayoutFloat: "ModifyPayoutFloat",
	HeaderRequestAlarmCounter: "RequestAlarmCounter",
	HeaderHandheldFunction: "HandheldFunction",
	HeaderRequestBankSelect: "RequestBankSelect",
	HeaderModifyBankSelect: "ModifyBankSelect",
	HeaderRequestSecuritySetting: "RequestSecuritySetting",
	HeaderModifySecuritySetting: "ModifySecuritySetting",
	HeaderDownloadCalibrationInfo: "DownloadCalibrationInfo",
	HeaderUploadWindowData: "UploadWindowData",
	HeaderRequestCoinId: "RequestCoinId",
	HeaderModifyCoinId: "ModifyCoinId",
	HeaderRequestPayoutCapacity: "RequestPayoutCapacity",
	HeaderModifyPayoutCapacity: "ModifyPayoutCapacity",
	HeaderRequestDefaultSorterPath: "RequestDefaultSorterPath",
	HeaderModifyDefaultSorterPath: "ModifyDefaultSorterPath",
	HeaderKeypadControl: "KeypadControl",
	HeaderRequestBuildCode: "RequestBuildCode",
	HeaderRequestFraudCounter: "RequestFraudCounter",
	HeaderRequestRejectCounter: "RequestRejectCounter",
	HeaderRequestLastModificationDate: "RequestLastModificationDate",
	HeaderRequestCreationDate: "RequestCreationDate",
	HeaderCalculateROMChecksum: "CalculateROMChecksum",
	HeaderCountersToEEPROM: "CountersToEEPROM",
	HeaderConfigurationToEEPROM: "ConfigurationToEEPROM",
	HeaderACMIUnencryptedProductId: "ACMIUnencryptedProductId",
	HeaderRequestTeachStatus: "RequestTeachStatus",
	HeaderTeachModeControl: "TeachModeControl",
	HeaderDisplayControl: "DisplayControl",
	HeaderMeterControl: "MeterControl",
	HeaderRequestPayoutAbsoluteCount: "RequestPayoutAbsoluteCount",
	HeaderModifyPayoutAbsoluteCount: "ModifyPayoutAbsoluteCount",
	HeaderRequestSorterPaths: "RequestSorterPaths",
	HeaderModifySorterPaths: "ModifySorterPaths",
	HeaderPowerManagementControl: "PowerManagementControl",
	HeaderRequestCoinPosition: "RequestCoinPosition",
	HeaderRequestOptionFlags: "RequestOptionFlags",
	HeaderWriteDataBlock: "WriteDataBlock",
	HeaderReadDataBlock: "ReadDataBlock",
	HeaderRequestDataStorageAvailability: "RequestDataStorageAvailability",
	HeaderRequestPayoutStatus: "RequestPayoutStatus",
	HeaderEnterPinNumber: "EnterPinNumber",
	HeaderEnterNewPinNumber: "EnterNewPinNumber",
	HeaderACMIEncryptedData: "ACMIEncryptedData",
	HeaderRequestSorterOverrideStatus: "RequestSorterOverrideStatus",
	HeaderModifySorterOverrideStatus: "ModifySorterOverrideStatus",
	HeaderModifyEncryptedInhibitAndOverrideRegisters: "ModifyEncryptedInhibitAndOverrideRegisters",
	HeaderRequestEncryptedProductId: "RequestEncryptedProductId",
	HeaderRequestAcceptCounter: "RequestAcceptCounter",
	HeaderRequestInsertionCounter: "RequestInsertionCounter",
	HeaderRequestMasterInhibitStatus: "RequestMasterInhibitStatus",
	HeaderModifyMasterInhibitStatus: "ModifyMasterInhibitStatus",
	HeaderReadBufferedCreditOrErrorCodes: "ReadBufferedCreditOrErrorCodes",
	HeaderRequestInhibitStatus: "RequestInhibitStatus",
	HeaderModifyInhibitStatus: "ModifyInhibitStatus",
	HeaderPerformSelfCheck: "PerformSelfCheck",
	HeaderLatchOutputLines: "LatchOutputLines",
	HeaderSendDHPK: "SendDHPK",
	HeaderReadDHPK: "ReadDHPK",
	HeaderReadOptoStates: "ReadOptoStates",
	HeaderReadInputLines: "ReadInputLines",
	HeaderTestOutputLines: "TestOutputLines",
	HeaderOperateMotors: "OperateMotors",
	HeaderTestSolenoids: "TestSolenoids",
	HeaderRequestSoftwareRevision: "RequestSoftwareRevision",
	HeaderRequestSerialNumber: "RequestSerialNumber",
	HeaderRequestDatabaseVersion: "RequestDatabaseVersion",
	HeaderRequestProductCode: "RequestProductCode",
	HeaderRequestEquipementCategoryId: "RequestEquipementCategoryId",
	HeaderRequestManufacturerId: "RequestManufacturerId",
	HeaderRequestVariableSet: "RequestVariableSet",
	HeaderRequestStatus: "RequestStatus",
	HeaderRequestPollingPriority: "RequestPollingPriority",
	HeaderAddressRandom: "AddressRandom",
	HeaderAddressChange: "AddressChange",
	HeaderAddressClash: "AddressClash",
	HeaderAddressPoll: "AddressPoll",
	HeaderSimplePoll: "SimplePoll",
}

// String implements fmt.Stringer, returning the constant's symbolic name or
// a numeric fallback for headers outside the closed set (which ParseHeader
// would have already rejected, but callers may hold a raw byte).
func (h Header) String() string {
	if name, ok := headerNames[h]; ok {
		return name
	}
	return fmt.Sprintf("Header(%d)", uint8(h))
}

// ErrInvalidHeader is returned by ParseHeader for byte values outside the
// closed header set.
type ErrInvalidHeader struct {
	Byte byte
}

func (e ErrInvalidHeader) Error() string {
	return fmt.Sprintf("ccTalk: invalid header byte %d", e.Byte)
}

// ParseHeader validates a raw header byte against the closed set of known
// headers, the Go analogue of the source's Header::try_from(byte).
func ParseHeader(b byte) (Header, error) {
	h := Header(b)
	if _, ok := headerNames[h]; !ok {
		return 0, ErrInvalidHeader{Byte: b}
	}
	return h, nil
}

// IsReply reports whether h is the universal ACK/reply header (0). A reply
// packet with a zero-length payload carrying this header is a legal ACK.
func (h Header) IsReply() bool { return h == HeaderReply }

// IsNAK reports whether h signals a refused command.
func (h Header) IsNAK() bool { return h == HeaderNAK }

// IsBusy reports whether h signals the device is busy and the request
// should be retried by the caller.
func (h Header) IsBusy() bool { return h == HeaderBusy }
