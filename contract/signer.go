package contract

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"crossServer/config"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// signer sends transactions from the configured player wallet.
type signer struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	logger  *zap.Logger

	// sendMu serializes transactions from this wallet so pending nonces
	// are never handed out twice.
	sendMu sync.Mutex
}

func newSigner(client *ethclient.Client, privateKeyHex string, chainID int64, logger *zap.Logger) (*signer, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	if privateKeyHex == "" {
		return nil, fmt.Errorf("PLAYER_PRIVATE_KEY environment variable not set")
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &signer{
		client:  client,
		key:     privateKey,
		from:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID: big.NewInt(chainID),
		logger:  logger,
	}, nil
}

// transactor builds signing options for a call of input on to: pending nonce,
// suggested gas price and an estimated gas limit plus a buffer.
func (s *signer) transactor(ctx context.Context, to common.Address, input []byte) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx
	auth.Value = big.NewInt(0) // non-payable

	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	auth.GasPrice = gasPrice

	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &to,
		Data: input,
	})
	if err != nil {
		// Reverts surface here first; insufficient balance or allowance
		// must reach the caller instead of a blind send.
		if isRevert(err) {
			return nil, fmt.Errorf("gas estimation reverted: %w", err)
		}
		s.logger.Warn("⚠️ Gas estimation failed, using default", zap.Error(err))
		auth.GasLimit = config.DefaultGasLimit
	} else {
		auth.GasLimit = gasLimit + (gasLimit * config.GasBufferPercent / 100)
	}

	return auth, nil
}

// waitMined blocks until tx is mined and fails on a reverted receipt.
func (s *signer) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		return nil, fmt.Errorf("transaction mining failed: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("transaction %s failed with status: %d", tx.Hash().Hex(), receipt.Status)
	}
	return receipt, nil
}

func isRevert(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
