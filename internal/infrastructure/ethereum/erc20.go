package ethereum

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/arvatny/tokendir/internal/domain/entities"
)

// ErrNotERC20 is returned when an address has no code or does not answer the
// ERC-20 metadata calls.
var ErrNotERC20 = errors.New("address is not an ERC-20 token")

const erc20MetadataABI = `[
	{"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

// ContractCaller is the read-only chain access TokenReader needs. *Client
// satisfies it; tests substitute a fake.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
}

// TokenReader validates ERC-20 contracts and reads their metadata.
type TokenReader struct {
	caller ContractCaller
	abi    abi.ABI
}

func NewTokenReader(caller ContractCaller) (*TokenReader, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20MetadataABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &TokenReader{caller: caller, abi: parsed}, nil
}

// ReadMetadata checks that addr is a contract and reads symbol, name and
// decimals. A missing name is tolerated; symbol and decimals are required.
func (r *TokenReader) ReadMetadata(ctx context.Context, addr common.Address) (entities.Token, error) {
	code, err := r.caller.CodeAt(ctx, addr)
	if err != nil {
		return entities.Token{}, fmt.Errorf("code lookup for %s: %w", addr.Hex(), err)
	}
	if len(code) == 0 {
		return entities.Token{}, fmt.Errorf("%w: no code at %s", ErrNotERC20, addr.Hex())
	}

	symbol, err := r.callString(ctx, addr, "symbol")
	if err != nil {
		return entities.Token{}, fmt.Errorf("%w: %s", ErrNotERC20, err)
	}

	decimals, err := r.callDecimals(ctx, addr)
	if err != nil {
		return entities.Token{}, fmt.Errorf("%w: %s", ErrNotERC20, err)
	}

	name, err := r.callString(ctx, addr, "name")
	if err != nil {
		name = symbol
	}

	return entities.Token{
		Address:  addr,
		Symbol:   symbol,
		Name:     name,
		Decimals: decimals,
	}, nil
}

func (r *TokenReader) callString(ctx context.Context, addr common.Address, method string) (string, error) {
	data, err := r.abi.Pack(method)
	if err != nil {
		return "", fmt.Errorf("pack %s: %w", method, err)
	}

	result, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data})
	if err != nil {
		return "", fmt.Errorf("call %s: %w", method, err)
	}

	out, err := r.abi.Unpack(method, result)
	if err == nil && len(out) == 1 {
		if s, ok := out[0].(string); ok {
			return s, nil
		}
	}

	// Some older tokens return bytes32 instead of string.
	if len(result) == 32 {
		return string(bytes.TrimRight(result, "\x00")), nil
	}

	return "", fmt.Errorf("decode %s response", method)
}

func (r *TokenReader) callDecimals(ctx context.Context, addr common.Address) (uint8, error) {
	data, err := r.abi.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("pack decimals: %w", err)
	}

	result, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data})
	if err != nil {
		return 0, fmt.Errorf("call decimals: %w", err)
	}

	out, err := r.abi.Unpack("decimals", result)
	if err != nil || len(out) != 1 {
		return 0, fmt.Errorf("decode decimals response")
	}

	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", out[0])
	}
	return decimals, nil
}
