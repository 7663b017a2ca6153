package value

import "fmt"

// FaultCode is the ccTalk Generic Specification Table 3 fault code,
// returned in reply to a Perform self-check command. Any non-zero code
// is a fatal condition requiring service; the device inhibits operation
// automatically while one is latched.
type FaultCode byte

const (
	FaultOk                           FaultCode = 0
	FaultEepromChecksumCorrupted      FaultCode = 1
	FaultInductiveCoilsFault          FaultCode = 2
	FaultCreditSensorFault            FaultCode = 3
	FaultPiezoSensorFault             FaultCode = 4
	FaultReflectiveSensorFault        FaultCode = 5
	FaultDiameterSensorFault          FaultCode = 6
	FaultWakeUpSensorFault            FaultCode = 7
	FaultSorterExitSensorsFault       FaultCode = 8
	FaultNvramChecksumCorrupted       FaultCode = 9
	FaultCoinDispensingError          FaultCode = 10
	FaultLowLevelSensorError          FaultCode = 11
	FaultHighLevelSensorError         FaultCode = 12
	FaultCoinCountingError            FaultCode = 13
	FaultKeypadError                  FaultCode = 14
	FaultButtonError                  FaultCode = 15
	FaultDisplayError                 FaultCode = 16
	FaultCoinAuditingError            FaultCode = 17
	FaultRejectSensorFault            FaultCode = 18
	FaultCoinReturnMechanismFault     FaultCode = 19
	FaultCosMechanismFault            FaultCode = 20
	FaultRimSensorFault               FaultCode = 21
	FaultThermistorFault              FaultCode = 22
	FaultPayoutMotorFault             FaultCode = 23
	FaultPayoutTimeout                FaultCode = 24
	FaultPayoutJammed                 FaultCode = 25
	FaultPayoutSensorFault            FaultCode = 26
	FaultLevelSensorError             FaultCode = 27
	FaultPersonalityModuleNotFitted   FaultCode = 28
	FaultPersonalityChecksumCorrupted FaultCode = 29
	FaultRomChecksumMismatch          FaultCode = 30
	FaultMissingSlaveDevice           FaultCode = 31
	FaultInternalCommsBad             FaultCode = 32
	FaultSupplyVoltageOutsideLimits   FaultCode = 33
	FaultTemperatureOutsideLimits     FaultCode = 34
	FaultDceFault                     FaultCode = 35
	FaultBillValidationSensorFault    FaultCode = 36
	FaultBillTransportMotorFault      FaultCode = 37
	FaultStackerFault                 FaultCode = 38
	FaultBillJammed                   FaultCode = 39
	FaultRamTestFail                  FaultCode = 40
	FaultStringSensorFault            FaultCode = 41
	FaultAcceptGateFailedOpen         FaultCode = 42
	FaultAcceptGateFailedClosed       FaultCode = 43
	FaultStackerMissing               FaultCode = 44
	FaultStackerFull                  FaultCode = 45
	FaultFlashMemoryEraseFail         FaultCode = 46
	FaultFlashMemoryWriteFail         FaultCode = 47
	FaultSlaveDeviceNotResponding     FaultCode = 48
	FaultOptoSensorFault              FaultCode = 49
	FaultBatteryFault                 FaultCode = 50
	FaultDoorOpen                     FaultCode = 51
	FaultMicroswitchFault             FaultCode = 52
	FaultRtcFault                     FaultCode = 53
	FaultFirmwareError                FaultCode = 54
	FaultInitialisationError          FaultCode = 55
	FaultSupplyCurrentOutsideLimits   FaultCode = 56
	FaultForcedBootloaderMode         FaultCode = 57
	FaultUnspecifiedFault             FaultCode = 255
)

var faultCodeNames = map[FaultCode]string{
	FaultOk:                           "no fault detected",
	FaultEepromChecksumCorrupted:      "EEPROM checksum corrupted",
	FaultInductiveCoilsFault:          "fault on inductive coils",
	FaultCreditSensorFault:            "fault on credit sensor",
	FaultPiezoSensorFault:             "fault on piezo sensor",
	FaultReflectiveSensorFault:        "fault on reflective sensor",
	FaultDiameterSensorFault:          "fault on diameter sensor",
	FaultWakeUpSensorFault:            "fault on wake-up sensor",
	FaultSorterExitSensorsFault:       "fault on sorter exit sensors",
	FaultNvramChecksumCorrupted:       "NVRAM checksum corrupted",
	FaultCoinDispensingError:          "coin dispensing error (obsolete)",
	FaultLowLevelSensorError:          "low level sensor error (obsolete)",
	FaultHighLevelSensorError:         "high level sensor error (obsolete)",
	FaultCoinCountingError:            "coin counting error (obsolete)",
	FaultKeypadError:                  "keypad error",
	FaultButtonError:                  "button error",
	FaultDisplayError:                 "display error",
	FaultCoinAuditingError:            "coin auditing error",
	FaultRejectSensorFault:            "reject sensor fault",
	FaultCoinReturnMechanismFault:     "coin return mechanism fault",
	FaultCosMechanismFault:            "changer-over-sensor mechanism fault",
	FaultRimSensorFault:               "rim sensor fault",
	FaultThermistorFault:              "thermistor fault",
	FaultPayoutMotorFault:             "payout motor fault",
	FaultPayoutTimeout:                "payout timeout",
	FaultPayoutJammed:                 "payout jammed",
	FaultPayoutSensorFault:            "payout sensor fault",
	FaultLevelSensorError:             "level sensor error",
	FaultPersonalityModuleNotFitted:   "personality module not fitted",
	FaultPersonalityChecksumCorrupted: "personality checksum corrupted",
	FaultRomChecksumMismatch:          "ROM checksum mismatch",
	FaultMissingSlaveDevice:           "missing slave device",
	FaultInternalCommsBad:             "internal communications bad",
	FaultSupplyVoltageOutsideLimits:   "supply voltage outside limits",
	FaultTemperatureOutsideLimits:     "temperature outside limits",
	FaultDceFault:                     "dual coin entry fault",
	FaultBillValidationSensorFault:    "bill validation sensor fault",
	FaultBillTransportMotorFault:      "bill transport motor fault",
	FaultStackerFault:                 "stacker fault",
	FaultBillJammed:                   "bill jammed",
	FaultRamTestFail:                  "RAM test fail",
	FaultStringSensorFault:            "string sensor fault",
	FaultAcceptGateFailedOpen:         "accept gate failed open",
	FaultAcceptGateFailedClosed:       "accept gate failed closed",
	FaultStackerMissing:               "stacker missing",
	FaultStackerFull:                  "stacker full",
	FaultFlashMemoryEraseFail:         "flash memory erase fail",
	FaultFlashMemoryWriteFail:         "flash memory write fail",
	FaultSlaveDeviceNotResponding:     "slave device not responding",
	FaultOptoSensorFault:              "opto sensor fault",
	FaultBatteryFault:                 "battery fault",
	FaultDoorOpen:                     "door open",
	FaultMicroswitchFault:             "microswitch fault",
	FaultRtcFault:                     "real-time clock fault",
	FaultFirmwareError:                "firmware error",
	FaultInitialisationError:          "initialisation error",
	FaultSupplyCurrentOutsideLimits:   "supply current outside limits",
	FaultForcedBootloaderMode:         "forced bootloader mode",
	FaultUnspecifiedFault:             "unspecified fault",
}

func (f FaultCode) String() string {
	if s, ok := faultCodeNames[f]; ok {
		return s
	}
	return fmt.Sprintf("unknown fault code %d", byte(f))
}

// IsFault reports whether the code indicates a fatal, service-requiring
// condition (anything other than FaultOk).
func (f FaultCode) IsFault() bool { return f != FaultOk }
