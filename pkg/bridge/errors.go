package bridge

import "errors"

// Validation and invariant errors. Every operation fails with exactly one of these
// (possibly wrapped) and leaves no partial state behind.
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidRecipient  = errors.New("invalid recipient")
	ErrInvalidSender     = errors.New("invalid sender")
	ErrInvalidChainID    = errors.New("invalid chain id")
	ErrInvalidAuthority  = errors.New("invalid authority")
	ErrInvalidDecimals   = errors.New("invalid decimals")
	ErrInvalidMaxSupply  = errors.New("invalid max supply")
	ErrExceedsMaxSupply  = errors.New("exceeds maximum supply")
	ErrSupplyOverflow    = errors.New("supply overflow")
	ErrSupplyUnderflow   = errors.New("supply underflow")
	ErrNonceAlreadyUsed  = errors.New("nonce already used")
	ErrNonceRegistryFull = errors.New("nonce registry full")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInvalidRecipient, "invalid_recipient"},
	{ErrInvalidSender, "invalid_sender"},
	{ErrInvalidChainID, "invalid_chain_id"},
	{ErrInvalidAuthority, "invalid_authority"},
	{ErrInvalidDecimals, "invalid_decimals"},
	{ErrInvalidMaxSupply, "invalid_max_supply"},
	{ErrExceedsMaxSupply, "exceeds_max_supply"},
	{ErrSupplyOverflow, "supply_overflow"},
	{ErrSupplyUnderflow, "supply_underflow"},
	{ErrNonceAlreadyUsed, "nonce_already_used"},
	{ErrNonceRegistryFull, "nonce_registry_full"},
}

// Code returns a stable snake_case code for err, "ok" for nil and "internal" for
// errors outside the bridge taxonomy.
func Code(err error) string {
	if err == nil {
		return "ok"
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
