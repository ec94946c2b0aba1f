// Package chainwatch observes on-chain payment transactions from submission
// to confirmation.
//
// A watched transaction moves NotSent -> Pending -> Confirmed. There is no
// failed terminal state: a transaction that never confirms stays pending
// until the caller abandons the watch by cancelling its context. Problems
// detectable at submission time (unknown chain, malformed hash) surface as
// errors before watching ever begins.
package chainwatch

import (
	"context"
	"math/big"
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/ovenworks/breadstore/internal/domain/payment"
)

// EVMClient is the subset of the Ethereum RPC surface the watcher needs.
type EVMClient interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
}

// Dial connects an EVM RPC client to the given endpoint.
func Dial(endpoint string) (*ethclient.Client, error) {
	if endpoint == "" {
		return nil, errors.New("evm endpoint required")
	}
	return ethclient.Dial(endpoint)
}

var (
	// ErrUnknownChain means no RPC client is configured for the chain.
	ErrUnknownChain = errors.New("no client for chain")
	// ErrBadTxHash means the transaction hash is malformed.
	ErrBadTxHash = errors.New("malformed transaction hash")
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// Confirmation reports a confirmed transaction. Delivered exactly once per
// watch.
type Confirmation struct {
	TxHash      common.Hash
	BlockNumber uint64
}

// Config tunes watcher behavior.
type Config struct {
	// Confirmations is how many blocks must build on the transaction's
	// block (inclusive) before it counts as confirmed. Zero means a
	// receipt alone suffices.
	Confirmations uint64
	// PollInterval is the delay between receipt checks.
	PollInterval time.Duration
}

// Watcher polls configured chains for transaction confirmations.
type Watcher struct {
	clients map[payment.Chain]EVMClient
	cfg     Config
	lg      *zap.Logger
}

// NewWatcher builds a Watcher over per-chain clients.
func NewWatcher(clients map[payment.Chain]EVMClient, cfg Config, lg *zap.Logger) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Watcher{clients: clients, cfg: cfg, lg: lg}
}

// Chains returns the chains the watcher has clients for.
func (w *Watcher) Chains() []payment.Chain {
	out := make([]payment.Chain, 0, len(w.clients))
	for c := range w.clients {
		out = append(out, c)
	}
	return out
}

func (w *Watcher) resolve(chain payment.Chain, txHash string) (EVMClient, common.Hash, error) {
	client, ok := w.clients[chain]
	if !ok {
		return nil, common.Hash{}, errors.Wrap(ErrUnknownChain, string(chain))
	}
	if !txHashPattern.MatchString(txHash) {
		return nil, common.Hash{}, errors.Wrap(ErrBadTxHash, txHash)
	}
	return client, common.HexToHash(txHash), nil
}

// checkOnce looks for a receipt. A missing receipt and transient RPC
// failures are the pending state, not errors; only a reverted transaction is
// terminal.
func (w *Watcher) checkOnce(ctx context.Context, client EVMClient, hash common.Hash) (confirmed bool, blockNum uint64, err error) {
	receipt, err := client.TransactionReceipt(ctx, hash)
	if err != nil {
		if !errors.Is(err, ethereum.NotFound) {
			w.lg.Debug("receipt fetch failed", zap.String("tx", hash.Hex()), zap.Error(err))
		}
		return false, 0, nil
	}
	if receipt == nil || receipt.BlockNumber == nil {
		return false, 0, nil
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return false, 0, errors.Errorf("transaction %s reverted", hash.Hex())
	}

	if w.cfg.Confirmations > 0 {
		header, err := client.HeaderByNumber(ctx, nil)
		if err != nil {
			w.lg.Debug("head fetch failed", zap.Error(err))
			return false, 0, nil
		}
		if header == nil || header.Number == nil || header.Number.Cmp(receipt.BlockNumber) < 0 {
			return false, 0, nil
		}
		have := new(big.Int).Sub(header.Number, receipt.BlockNumber)
		have.Add(have, big.NewInt(1))
		if have.Cmp(new(big.Int).SetUint64(w.cfg.Confirmations)) < 0 {
			return false, 0, nil
		}
	}
	return true, receipt.BlockNumber.Uint64(), nil
}

// WaitConfirmed blocks until the transaction is confirmed, the transaction
// reverts, or ctx expires. It implements order.SettlementVerifier; callers
// bound the wait with their own context deadline.
func (w *Watcher) WaitConfirmed(ctx context.Context, chain payment.Chain, txHash string) error {
	client, hash, err := w.resolve(chain, txHash)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		confirmed, _, err := w.checkOnce(ctx, client, hash)
		if err != nil {
			return err
		}
		if confirmed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Watch observes the transaction until confirmed and delivers the
// confirmation exactly once on the returned channel, then closes it. The
// one-shot channel makes the at-most-once contract structural rather than
// caller discipline.
//
// Submission-time problems return an error immediately; after that the
// watch runs until confirmation or ctx cancellation. A reverted transaction
// ends the watch without a confirmation.
func (w *Watcher) Watch(ctx context.Context, chain payment.Chain, txHash string) (<-chan Confirmation, error) {
	client, hash, err := w.resolve(chain, txHash)
	if err != nil {
		return nil, err
	}

	out := make(chan Confirmation, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()

		for {
			confirmed, blockNum, err := w.checkOnce(ctx, client, hash)
			if err != nil {
				w.lg.Warn("settlement watch ended",
					zap.String("tx", hash.Hex()), zap.Error(err))
				return
			}
			if confirmed {
				out <- Confirmation{TxHash: hash, BlockNumber: blockNum}
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out, nil
}
