package chain

import (
	"encoding/json"
	"strconv"
)

// Methods answered locally, without upstream contact.
const (
	MethodChainID    = "eth_chainId"
	MethodNetVersion = "net_version"
)

// Identity is the chain the proxy fronts. Chain-identity queries are
// answered from this constant so wallets handshaking against the proxy never
// burn upstream quota.
type Identity struct {
	ID uint64
}

// Hex returns the chain id in 0x-prefixed hex form, the eth_chainId answer.
func (c Identity) Hex() string {
	return "0x" + strconv.FormatUint(c.ID, 16)
}

// Decimal returns the chain id as a decimal string, the net_version answer.
func (c Identity) Decimal() string {
	return strconv.FormatUint(c.ID, 10)
}

// Answer returns the local result for a chain-identity method, or ok=false
// when the method must go upstream.
func (c Identity) Answer(method string) (json.RawMessage, bool) {
	switch method {
	case MethodChainID:
		return mustMarshal(c.Hex()), true
	case MethodNetVersion:
		return mustMarshal(c.Decimal()), true
	default:
		return nil, false
	}
}

func mustMarshal(s string) json.RawMessage {
	raw, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return raw
}
