package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// TokenContract wraps the ERC-20 token bets are paid in.
type TokenContract struct {
	Contract *bind.BoundContract
	ABI      abi.ABI
	Address  common.Address

	signer *signer
}

func newTokenContract(address common.Address, s *signer) (*TokenContract, error) {
	tokenABI, err := loadABI("ERC20.json")
	if err != nil {
		return nil, err
	}
	return &TokenContract{
		Contract: bind.NewBoundContract(address, tokenABI, s.client, s.client, s.client),
		ABI:      tokenABI,
		Address:  address,
		signer:   s,
	}, nil
}

// BalanceOf returns the token balance of account in base units.
func (t *TokenContract) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var out []interface{}
	if err := t.Contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account); err != nil {
		return nil, fmt.Errorf("balanceOf failed: %w", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Allowance returns how much spender may still move on behalf of owner.
func (t *TokenContract) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var out []interface{}
	if err := t.Contract.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, spender); err != nil {
		return nil, fmt.Errorf("allowance failed: %w", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Approve lets spender pull amount and waits for the approval to be mined.
func (t *TokenContract) Approve(ctx context.Context, spender common.Address, amount *big.Int) error {
	input, err := t.ABI.Pack("approve", spender, amount)
	if err != nil {
		return fmt.Errorf("failed to pack input: %w", err)
	}

	auth, err := t.signer.transactor(ctx, t.Address, input)
	if err != nil {
		return err
	}

	t.signer.logger.Info("📝 Approving token spend",
		zap.String("spender", spender.Hex()),
		zap.String("amount", amount.String()),
		zap.Uint64("gasLimit", auth.GasLimit))

	tx, err := t.Contract.Transact(auth, "approve", spender, amount)
	if err != nil {
		return fmt.Errorf("approve failed: %w", err)
	}
	if _, err := t.signer.waitMined(ctx, tx); err != nil {
		return err
	}

	t.signer.logger.Info("✅ Approval mined", zap.String("tx", tx.Hash().Hex()))
	return nil
}

// EnsureAllowance approves amount for spender unless the current allowance
// already covers it.
func (t *TokenContract) EnsureAllowance(ctx context.Context, spender common.Address, amount *big.Int) error {
	current, err := t.Allowance(ctx, t.signer.from, spender)
	if err != nil {
		return err
	}
	if current.Cmp(amount) >= 0 {
		return nil
	}
	return t.Approve(ctx, spender, amount)
}
