package ethereum

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps the go-ethereum client with the calls the service needs.
type Client struct {
	client  *ethclient.Client
	rpcURL  string
	chainID *big.Int
	mu      sync.RWMutex
}

// NewClient dials the RPC endpoint and verifies it answers with a chain ID.
func NewClient(rpcURL string) (*Client, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &Client{
		client:  client,
		rpcURL:  rpcURL,
		chainID: chainID,
	}, nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client.Close()
}

func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// CallContract executes a read-only contract call.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client.CallContract(ctx, msg, nil)
}

// CodeAt returns the deployed bytecode at addr, empty for EOAs.
func (c *Client) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client.CodeAt(ctx, addr, nil)
}
