package value

import "fmt"

// CoinAcceptorError is the ccTalk coin acceptor error code table (Generic
// Specification Table 3), reported in result B of a credit poll whenever
// result A is 0.
type CoinAcceptorError byte

const (
	CoinErrorNullEvent                        CoinAcceptorError = 0
	CoinErrorRejectCoin                        CoinAcceptorError = 1
	CoinErrorInhibitedCoin                     CoinAcceptorError = 2
	CoinErrorMultipleWindow                    CoinAcceptorError = 3
	CoinErrorWakeUpTimeout                     CoinAcceptorError = 4
	CoinErrorValidationTimeout                 CoinAcceptorError = 5
	CoinErrorCreditSensorTimeout                CoinAcceptorError = 6
	CoinErrorSorterOptoTimeout                 CoinAcceptorError = 7
	CoinErrorSecondCloseCoinError               CoinAcceptorError = 8
	CoinErrorAcceptGateNotReady                 CoinAcceptorError = 9
	CoinErrorCreditSensorNotReady               CoinAcceptorError = 10
	CoinErrorSorterNotReady                     CoinAcceptorError = 11
	CoinErrorRejectCoinNotCleared               CoinAcceptorError = 12
	CoinErrorValidationSensorNotReady           CoinAcceptorError = 13
	CoinErrorCreditSensorBlocked                CoinAcceptorError = 14
	CoinErrorSorterOptoBlocked                  CoinAcceptorError = 15
	CoinErrorCreditSequenceError                CoinAcceptorError = 16
	CoinErrorCoinGoingBackwards                 CoinAcceptorError = 17
	CoinErrorCoinTooFastCreditSensor            CoinAcceptorError = 18
	CoinErrorCoinTooSlowCreditSensor            CoinAcceptorError = 19
	CoinErrorCoinOnStringMechanism              CoinAcceptorError = 20
	CoinErrorDceOptoTimeout                     CoinAcceptorError = 21
	CoinErrorDceOptoNotSeen                     CoinAcceptorError = 22
	CoinErrorCreditSensorReachedTooEarly        CoinAcceptorError = 23
	CoinErrorRejectCoinRepeatedTrip             CoinAcceptorError = 24
	CoinErrorRejectSlug                         CoinAcceptorError = 25
	CoinErrorRejectSensorBlocked                CoinAcceptorError = 26
	CoinErrorGamesOverload                      CoinAcceptorError = 27
	CoinErrorMaxCoinMeterPulsesExceeded         CoinAcceptorError = 28
	CoinErrorAcceptGateOpenNotClosed            CoinAcceptorError = 29
	CoinErrorAcceptGateClosedNotOpen            CoinAcceptorError = 30
	CoinErrorManifoldOptoTimeout                CoinAcceptorError = 31
	CoinErrorManifoldOptoBlocked                CoinAcceptorError = 32
	CoinErrorManifoldNotReady                   CoinAcceptorError = 33
	CoinErrorSecurityStatusChanged              CoinAcceptorError = 34
	CoinErrorMotorException                     CoinAcceptorError = 35
	CoinErrorSwallowedCoin                      CoinAcceptorError = 36
	CoinErrorCoinTooFastValidationSensor        CoinAcceptorError = 37
	CoinErrorCoinTooSlowValidationSensor        CoinAcceptorError = 38
	CoinErrorCoinIncorrectlySorted              CoinAcceptorError = 39
	CoinErrorExternalLightAttack                CoinAcceptorError = 40
	CoinErrorDataBlockRequest                   CoinAcceptorError = 253
	CoinErrorCoinReturnMechanism                CoinAcceptorError = 254
	CoinErrorUnspecifiedAlarm                   CoinAcceptorError = 255
)

var coinAcceptorErrorMessages = map[CoinAcceptorError]string{
	CoinErrorNullEvent:                 "no error occurred",
	CoinErrorRejectCoin:                "coin rejected - did not match any programmed coin type",
	CoinErrorInhibitedCoin:             "coin rejected - inserted coin is inhibited",
	CoinErrorMultipleWindow:            "coin rejected - matched multiple enabled window types",
	CoinErrorWakeUpTimeout:             "wake-up sensor timeout - possible coin jam",
	CoinErrorValidationTimeout:         "validation area timeout - possible coin jam",
	CoinErrorCreditSensorTimeout:       "credit sensor timeout - possible coin jam",
	CoinErrorSorterOptoTimeout:         "sorter optical sensor timeout - possible coin jam",
	CoinErrorSecondCloseCoinError:      "second coin inserted too close to first",
	CoinErrorAcceptGateNotReady:        "accept gate not ready - coins inserted too quickly",
	CoinErrorCreditSensorNotReady:      "credit sensor not ready - coins inserted too quickly",
	CoinErrorSorterNotReady:            "sorter not ready - coins inserted too quickly",
	CoinErrorRejectCoinNotCleared:      "previous rejected coin not cleared",
	CoinErrorValidationSensorNotReady:  "validation sensor not ready - possible developing fault",
	CoinErrorCreditSensorBlocked:       "credit sensor permanently blocked",
	CoinErrorSorterOptoBlocked:         "sorter exit sensor permanently blocked",
	CoinErrorCreditSequenceError:       "credit sequence error - possible fraud attempt",
	CoinErrorCoinGoingBackwards:        "coin going backwards - possible fraud attempt",
	CoinErrorCoinTooFastCreditSensor:   "coin too fast over credit sensor - possible fraud attempt",
	CoinErrorCoinTooSlowCreditSensor:   "coin too slow over credit sensor - possible fraud attempt",
	CoinErrorCoinOnStringMechanism:     "coin-on-string mechanism activated - fraud attempt detected",
	CoinErrorDceOptoTimeout:            "dual coin entry optical timeout - possible coin jam",
	CoinErrorDceOptoNotSeen:            "dual coin entry optical sensor bypass - possible fraud attempt",
	CoinErrorCreditSensorReachedTooEarly: "credit sensor reached too early - possible fraud attempt",
	CoinErrorRejectCoinRepeatedTrip:    "reject coin repeatedly trips the reject sensor",
	CoinErrorRejectSlug:                "reject slug - slug rejected",
	CoinErrorRejectSensorBlocked:       "reject sensor permanently blocked",
	CoinErrorGamesOverload:             "games overload - coin meter pulses too frequent",
	CoinErrorMaxCoinMeterPulsesExceeded: "maximum coin meter pulses exceeded",
	CoinErrorAcceptGateOpenNotClosed:   "accept gate open when it should be closed",
	CoinErrorAcceptGateClosedNotOpen:   "accept gate closed when it should be open",
	CoinErrorManifoldOptoTimeout:       "manifold optical sensor timeout",
	CoinErrorManifoldOptoBlocked:       "manifold optical sensor permanently blocked",
	CoinErrorManifoldNotReady:         "manifold not ready",
	CoinErrorSecurityStatusChanged:     "security status changed",
	CoinErrorMotorException:           "motor exception",
	CoinErrorSwallowedCoin:            "swallowed coin",
	CoinErrorCoinTooFastValidationSensor: "coin too fast over validation sensor - possible fraud attempt",
	CoinErrorCoinTooSlowValidationSensor: "coin too slow over validation sensor - possible fraud attempt",
	CoinErrorCoinIncorrectlySorted:    "coin incorrectly sorted - hardware fault notification",
	CoinErrorExternalLightAttack:      "external light attack detected",
	CoinErrorDataBlockRequest:         "data block request - attention needed",
	CoinErrorCoinReturnMechanism:      "coin return mechanism activated - flight deck opened",
	CoinErrorUnspecifiedAlarm:         "unspecified alarm code",
}

// Error satisfies the error interface so a CoinAcceptorError can travel
// through Go error-handling paths directly.
func (e CoinAcceptorError) Error() string {
	if msg, ok := coinAcceptorErrorMessages[e]; ok {
		return msg
	}
	return fmt.Sprintf("ccTalk: unknown coin acceptor error code %d", byte(e))
}

// ParseCoinAcceptorError converts a raw result-B byte into a
// CoinAcceptorError. Codes 128-159 all collapse to InhibitedCoin, one per
// inhibited coin type 1-32; an unrecognised code outside the known table
// and that range reports ok=false.
func ParseCoinAcceptorError(code byte) (CoinAcceptorError, bool) {
	if code >= 128 && code <= 159 {
		return CoinErrorInhibitedCoin, true
	}
	if _, ok := coinAcceptorErrorMessages[CoinAcceptorError(code)]; ok {
		return CoinAcceptorError(code), true
	}
	return CoinErrorNullEvent, false
}

// IsCoinRejected reports whether this error definitely means the coin was
// rejected (as opposed to a timeout/fault report with no coin present).
func (e CoinAcceptorError) IsCoinRejected() bool {
	switch e {
	case CoinErrorRejectCoin, CoinErrorInhibitedCoin, CoinErrorMultipleWindow, CoinErrorRejectSlug:
		return true
	default:
		return false
	}
}
