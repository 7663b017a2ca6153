package value

// HopperFlag enumerates the 21 named conditions spread across the three
// 8-bit registers returned by TestHopper, encoded here with the register
// number baked into the high byte so a flag's register is recoverable
// without a side table.
type HopperFlag uint16

const (
	hopperRegister1Mask = 0
	hopperRegister2Mask = 256
	hopperRegister3Mask = 512
)

const (
	// Register 1
	HopperFlagAbsoluteMaximumCurrentExceeded  HopperFlag = hopperRegister1Mask + (1 << 0)
	HopperFlagPayoutTimeoutOccurred           HopperFlag = hopperRegister1Mask + (1 << 1)
	HopperFlagMotorReversedToClearJam         HopperFlag = hopperRegister1Mask + (1 << 2)
	HopperFlagOptoFraudPathBlockedDuringIdle  HopperFlag = hopperRegister1Mask + (1 << 3)
	HopperFlagOptoFraudShortCircuitDuringIdle HopperFlag = hopperRegister1Mask + (1 << 4)
	HopperFlagOptoBlockedPermanentlyDuringPayout HopperFlag = hopperRegister1Mask + (1 << 5)
	HopperFlagPowerUpDetected                 HopperFlag = hopperRegister1Mask + (1 << 6)
	HopperFlagPayoutDisabled                  HopperFlag = hopperRegister1Mask + (1 << 7)

	// Register 2
	HopperFlagOptoFraudPathBlockedDuringPayout HopperFlag = hopperRegister2Mask + (1 << 0)
	HopperFlagSingleCoinPayoutMode              HopperFlag = hopperRegister2Mask + (1 << 1)
	HopperFlagUseOtherHopper                    HopperFlag = hopperRegister2Mask + (1 << 2)
	HopperFlagOptoFraudAttemptFinger             HopperFlag = hopperRegister2Mask + (1 << 3)
	HopperFlagMotorReverseLimitReached           HopperFlag = hopperRegister2Mask + (1 << 4)
	HopperFlagInductiveCoilFault                 HopperFlag = hopperRegister2Mask + (1 << 5)
	HopperFlagNVMemoryChecksumError              HopperFlag = hopperRegister2Mask + (1 << 6)
	HopperFlagPinNumberMechanism                 HopperFlag = hopperRegister2Mask + (1 << 7)

	// Register 3 (only bits 0-4 are defined)
	HopperFlagPowerDownDuringPayout HopperFlag = hopperRegister3Mask + (1 << 0)
	HopperFlagUnknownCoinTypePaid   HopperFlag = hopperRegister3Mask + (1 << 1)
	HopperFlagPinNumberIncorrect    HopperFlag = hopperRegister3Mask + (1 << 2)
	HopperFlagIncorrectCipherKey    HopperFlag = hopperRegister3Mask + (1 << 3)
	HopperFlagEncryptionEnabled     HopperFlag = hopperRegister3Mask + (1 << 4)
)

var hopperFlagNames = map[HopperFlag]string{
	HopperFlagAbsoluteMaximumCurrentExceeded:     "absolute maximum current exceeded",
	HopperFlagPayoutTimeoutOccurred:              "payout timeout occurred",
	HopperFlagMotorReversedToClearJam:            "motor reversed to clear jam",
	HopperFlagOptoFraudPathBlockedDuringIdle:     "opto fraud: path blocked during idle",
	HopperFlagOptoFraudShortCircuitDuringIdle:    "opto fraud: short circuit during idle",
	HopperFlagOptoBlockedPermanentlyDuringPayout: "opto blocked permanently during payout",
	HopperFlagPowerUpDetected:                    "power-up detected",
	HopperFlagPayoutDisabled:                     "payout disabled",
	HopperFlagOptoFraudPathBlockedDuringPayout:   "opto fraud: path blocked during payout",
	HopperFlagSingleCoinPayoutMode:               "single coin payout mode",
	HopperFlagUseOtherHopper:                     "use other hopper",
	HopperFlagOptoFraudAttemptFinger:             "opto fraud: finger sensor mismatch",
	HopperFlagMotorReverseLimitReached:           "motor reverse limit reached",
	HopperFlagInductiveCoilFault:                 "inductive coil fault",
	HopperFlagNVMemoryChecksumError:              "NV memory checksum error",
	HopperFlagPinNumberMechanism:                 "PIN number mechanism enabled",
	HopperFlagPowerDownDuringPayout:              "power down during payout",
	HopperFlagUnknownCoinTypePaid:                "unknown coin type paid",
	HopperFlagPinNumberIncorrect:                 "PIN number incorrect",
	HopperFlagIncorrectCipherKey:                 "incorrect cipher key",
	HopperFlagEncryptionEnabled:                  "encryption enabled",
}

func (f HopperFlag) String() string {
	if s, ok := hopperFlagNames[f]; ok {
		return s
	}
	return "unknown hopper flag"
}

// Register reports which of the three status registers (1, 2 or 3) this
// flag belongs to.
func (f HopperFlag) Register() int {
	switch {
	case f >= hopperRegister3Mask:
		return 3
	case f >= hopperRegister2Mask:
		return 2
	default:
		return 1
	}
}

var hopperFlagByValue = func() map[HopperFlag]bool {
	m := make(map[HopperFlag]bool, len(hopperFlagNames))
	for f := range hopperFlagNames {
		m[f] = true
	}
	return m
}()

// ParseHopperFlags decodes up to three TestHopper status register bytes
// (register 1, 2, 3 in that order) into the set of flags they have set.
// Register 3 only defines bits 0-4; higher bits there are ignored.
func ParseHopperFlags(registers []byte) []HopperFlag {
	var flags []HopperFlag
	for i, reg := range registers {
		registerNum := i + 1
		if registerNum > 3 {
			break
		}
		maxBit := 8
		var regMask HopperFlag
		switch registerNum {
		case 1:
			regMask = hopperRegister1Mask
		case 2:
			regMask = hopperRegister2Mask
		case 3:
			regMask = hopperRegister3Mask
			maxBit = 5
		}
		for bit := 0; bit < maxBit; bit++ {
			if reg&(1<<uint(bit)) == 0 {
				continue
			}
			candidate := regMask + (1 << uint(bit))
			if hopperFlagByValue[candidate] {
				flags = append(flags, candidate)
			}
		}
	}
	return flags
}
