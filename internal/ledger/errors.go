package ledger

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Program error codes raised by the scratch program.
const (
	CodeGamePaused                = 6000
	CodeInvalidAmount             = 6001
	CodeOverflow                  = 6002
	CodeUnauthorized              = 6003
	CodeTreasuryTooLow            = 6004
	CodeInsufficientTreasury      = 6005
	CodeWithdrawWouldBreakMinimum = 6006
	CodeAlreadyReferred           = 6007
	CodeCannotSelfRefer           = 6008
	CodeReferralNotQualified      = 6009
	CodeAlreadyHasNFT             = 6010
	CodeNameTooLong               = 6011
	CodeInvalidName               = 6012
	CodePfpTooLong                = 6013
)

var programErrors = map[int]string{
	CodeGamePaused:                "Game is currently paused",
	CodeInvalidAmount:             "Invalid amount",
	CodeOverflow:                  "Arithmetic overflow",
	CodeUnauthorized:              "Unauthorized - admin only",
	CodeTreasuryTooLow:            "Treasury balance too low for this card type",
	CodeInsufficientTreasury:      "Treasury has insufficient funds for payout",
	CodeWithdrawWouldBreakMinimum: "Withdraw would break minimum treasury requirement",
	CodeAlreadyReferred:           "This wallet has already been referred",
	CodeCannotSelfRefer:           "Cannot refer yourself",
	CodeReferralNotQualified:      "Referee hasn't met 0.1 SOL minimum spend",
	CodeAlreadyHasNFT:             "Player already owns a Bonus NFT",
	CodeNameTooLong:               "Name too long (max 16 characters)",
	CodeInvalidName:               "Invalid name (alphanumeric, spaces, underscores only)",
	CodePfpTooLong:                "PFP URL too long (max 128 characters)",
}

var customErrorPattern = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)

// ProgramErrorCode extracts the custom program error code from an RPC or
// simulation message.
func ProgramErrorCode(msg string) (int, bool) {
	m := customErrorPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	code, err := strconv.ParseInt(m[1], 16, 32)
	if err != nil {
		return 0, false
	}
	return int(code), true
}

// ProgramErrorMessage maps a message carrying a known program error code to
// its readable text, or returns "".
func ProgramErrorMessage(msg string) string {
	code, ok := ProgramErrorCode(msg)
	if !ok {
		return ""
	}
	return programErrors[code]
}

// IsInsufficientFunds reports whether a ledger message describes a payer that
// cannot cover the transfer or the fee.
func IsInsufficientFunds(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "insufficient lamports") ||
		strings.Contains(lower, "insufficient funds") ||
		strings.Contains(lower, "no record of a prior credit")
}

// DescribeTransactionError renders a transaction error object from a
// signature status, e.g. {"InstructionError":[0,{"Custom":6000}]}.
func DescribeTransactionError(raw json.RawMessage) string {
	var instr struct {
		InstructionError []json.RawMessage `json:"InstructionError"`
	}
	if err := json.Unmarshal(raw, &instr); err == nil && len(instr.InstructionError) == 2 {
		var custom struct {
			Custom *int `json:"Custom"`
		}
		if err := json.Unmarshal(instr.InstructionError[1], &custom); err == nil && custom.Custom != nil {
			if msg, ok := programErrors[*custom.Custom]; ok {
				return msg
			}
			return "custom program error: 0x" + strconv.FormatInt(int64(*custom.Custom), 16)
		}
		var name string
		if err := json.Unmarshal(instr.InstructionError[1], &name); err == nil {
			return name
		}
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name
	}
	return string(raw)
}
