// Package payment defines the accepted payment options (token + chain pairs)
// and the USD-to-token amount conversion used at checkout.
package payment

import (
	"strings"

	"github.com/go-faster/errors"

	"github.com/ovenworks/breadstore/internal/pricing"
)

// Chain identifies one of the two supported EVM networks.
type Chain string

const (
	ChainBase     Chain = "base"
	ChainEthereum Chain = "ethereum"
)

// EVM chain IDs.
const (
	BaseChainID     = 8453
	EthereumChainID = 1
)

// Token contract addresses. Native ETH has no contract.
const (
	USDCBaseAddress     = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	USDCEthereumAddress = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	BreadTokenAddress   = "0xfAF89d9b21740183DDF2E0110497dA1A32Bd52Ca"
	CultTokenAddress    = "0x0000000000c5dc95539589fbD24BE07c6C14eCa4"
)

// ErrUnknownMethod is returned when a payment method ID is not configured.
var ErrUnknownMethod = errors.New("unknown payment method")

// Option is a static, deploy-time payment configuration entry.
type Option struct {
	ID    string
	Label string
	Token string
	Chain Chain
	// ChainID is the EVM chain identifier (8453 for Base, 1 for Ethereum).
	ChainID int
	// ContractAddress is the ERC-20 contract, empty for native ETH.
	ContractAddress string
	// Decimals is the token's display precision (ETH=18, USDC=6).
	Decimals int
	// PriceSource tells the oracle how to quote this token in USD.
	PriceSource pricing.Source
}

var options = []Option{
	{
		ID: "usdc-base", Label: "USDC on Base",
		Token: "USDC", Chain: ChainBase, ChainID: BaseChainID,
		ContractAddress: USDCBaseAddress, Decimals: 6,
		PriceSource: pricing.Reference("usd-coin"),
	},
	{
		ID: "usdc-ethereum", Label: "USDC on Ethereum",
		Token: "USDC", Chain: ChainEthereum, ChainID: EthereumChainID,
		ContractAddress: USDCEthereumAddress, Decimals: 6,
		PriceSource: pricing.Reference("usd-coin"),
	},
	{
		ID: "eth-base", Label: "ETH on Base",
		Token: "ETH", Chain: ChainBase, ChainID: BaseChainID,
		Decimals:    18,
		PriceSource: pricing.Reference("ethereum"),
	},
	{
		ID: "eth-ethereum", Label: "ETH on Ethereum",
		Token: "ETH", Chain: ChainEthereum, ChainID: EthereumChainID,
		Decimals:    18,
		PriceSource: pricing.Reference("ethereum"),
	},
	{
		ID: "bread-base", Label: "$BREAD on Base",
		Token: "BREAD", Chain: ChainBase, ChainID: BaseChainID,
		ContractAddress: BreadTokenAddress, Decimals: 18,
		PriceSource: pricing.DexPair(BreadTokenAddress, "base"),
	},
	{
		ID: "cult-ethereum", Label: "$CULT on Ethereum",
		Token: "CULT", Chain: ChainEthereum, ChainID: EthereumChainID,
		ContractAddress: CultTokenAddress, Decimals: 18,
		PriceSource: pricing.DexPair(CultTokenAddress, ""),
	},
}

// Options returns all configured payment options.
func Options() []Option {
	out := make([]Option, len(options))
	copy(out, options)
	return out
}

// OptionByID looks up a payment option by its method ID (e.g. "usdc-base").
func OptionByID(id string) (Option, error) {
	for _, o := range options {
		if o.ID == id {
			return o, nil
		}
	}
	return Option{}, errors.Wrap(ErrUnknownMethod, id)
}

// DeriveChain extracts the settlement chain from a payment method ID. The
// client-sent chain field is never trusted; the method ID is authoritative.
func DeriveChain(method string) Chain {
	if strings.Contains(method, "base") {
		return ChainBase
	}
	return ChainEthereum
}
