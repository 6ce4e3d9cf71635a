package gateway

import "fmt"

// Subset of Parsian's numeric status table mapped to operator-readable
// messages. Unknown codes degrade to a generic message carrying the raw code
// for support escalation.
var parsianStatusMessages = map[int32]string{
	-32768: "unknown internal error",
	-1552:  "payment reversal is not allowed",
	-1551:  "payment already reversed",
	-1550:  "reversal window has expired",
	-1549:  "payment is not in a reversible state",
	-1548:  "confirm after settlement window",
	-1540:  "payment confirmation failed",
	-1533:  "payment already confirmed",
	-1532:  "payment already delivered to merchant",
	-1531:  "payment confirmation is not allowed yet",
	-1530:  "merchant is not allowed to confirm this payment",
	-1528:  "payment information not found",
	-1527:  "sale request failed",
	-1507:  "payment reversed by the switch",
	-1505:  "payment confirmed by merchant",
	-138:   "payment cancelled by user",
	-132:   "amount is below the provider minimum",
	-131:   "invalid token",
	-130:   "token has expired",
	-128:   "invalid ip address format",
	-127:   "invalid merchant ip address",
	-126:   "invalid merchant pin",
	-121:   "invalid string length",
	-120:   "invalid numeric length",
	-113:   "request parameter is missing",
	-112:   "duplicate order id",
	-111:   "amount exceeds the provider maximum",
	-108:   "reversal capability is disabled for this merchant",
	-107:   "confirm capability is disabled for this merchant",
	-106:   "charge capability is disabled for this merchant",
	-103:   "merchant terminal is disabled",
	-102:   "merchant is not active",
	-101:   "merchant authentication failed",
	-100:   "merchant is inactive or pin is wrong",
	-1:     "server error",
	1:      "payment declined by issuer",
	2:      "transaction already approved",
	3:      "invalid merchant",
	5:      "transaction declined",
	12:     "invalid transaction",
	13:     "incorrect correction amount",
	14:     "invalid card number",
	15:     "issuer not found",
	17:     "cancelled by card holder",
	34:     "fraud suspected",
	51:     "insufficient funds",
	54:     "card expired",
	55:     "invalid pin",
	57:     "transaction not permitted for card holder",
	61:     "amount exceeds withdrawal limit",
	65:     "too many withdrawals",
	75:     "too many wrong pin attempts",
}

func parsianStatusMessage(code int32) string {
	if msg, ok := parsianStatusMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("unknown error: %d", code)
}
