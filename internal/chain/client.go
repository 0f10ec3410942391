package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/smartape/apebot/internal/domain"
)

// Client wraps a JSON-RPC connection to the chain node. It serves two reads
// the rest of the system needs: contract eth_call (quotes, token metadata,
// allowances) and transaction receipts for trade reconciliation.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
}

var _ domain.ReceiptReader = (*Client)(nil)

// Dial connects to the node at rpcURL and verifies the chain id matches the
// configured one. A zero wantChainID skips the check.
func Dial(ctx context.Context, rpcURL string, wantChainID int64) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	if wantChainID != 0 && chainID.Int64() != wantChainID {
		eth.Close()
		return nil, fmt.Errorf("chain: node reports chain id %s, want %d", chainID, wantChainID)
	}

	return &Client{eth: eth, chainID: chainID}, nil
}

// ChainID returns the id reported by the node at dial time.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Call executes a read-only eth_call against the given contract.
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", to.Hex(), err)
	}
	return out, nil
}

// Receipt looks up the receipt for txHash. A transaction still in flight is
// not an error: found is false and the caller leaves the trade pending.
func (c *Client) Receipt(ctx context.Context, txHash string) (domain.Receipt, bool, error) {
	r, err := c.eth.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return domain.Receipt{}, false, nil
	}
	if err != nil {
		return domain.Receipt{}, false, fmt.Errorf("chain: receipt %s: %w", txHash, err)
	}

	out := domain.Receipt{
		TxHash:  txHash,
		Status:  r.Status,
		GasUsed: r.GasUsed,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	if r.EffectiveGasPrice != nil {
		out.EffectiveGasPrice = new(big.Int).Set(r.EffectiveGasPrice)
	}
	return out, true, nil
}

// Health pings the node by asking for the latest block number.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.eth.BlockNumber(ctx); err != nil {
		return fmt.Errorf("chain: health: %w", err)
	}
	return nil
}

// Close tears down the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
