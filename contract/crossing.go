package contract

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"crossServer/game"
	"crossServer/ledger"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Config selects the chain, contracts and wallet of the live ledger.
type Config struct {
	RPCURL        string
	ChainID       int64
	GameAddress   string
	TokenAddress  string
	PrivateKeyHex string
}

// GameRecord mirrors the CrossForCoffee.Game struct returned by getLastGameResult.
type GameRecord struct {
	Difficulty   uint8
	Success      bool
	LanesBet     uint8
	LanesCrossed uint8
	Payout       *big.Int
	BaseSeed     *big.Int
	Result       string
}

// Tuple returns the record in getLastGameResult order.
func (g GameRecord) Tuple() []interface{} {
	return []interface{}{g.Difficulty, g.Success, g.LanesBet, g.LanesCrossed, g.Payout, g.BaseSeed, g.Result}
}

// CrossingContract wraps the CrossForCoffee game contract. It implements
// ledger.Client.
type CrossingContract struct {
	Client   *ethclient.Client
	Contract *bind.BoundContract
	ABI      abi.ABI
	Address  common.Address
	Token    *TokenContract

	signer *signer
	logger *zap.Logger

	// GameResult events decoded from our own receipts, by player.
	eventsMu   sync.RWMutex
	lastEvents map[common.Address]map[string]interface{}
}

var _ ledger.Client = (*CrossingContract)(nil)

// NewCrossingContract connects to the RPC endpoint and binds both contracts.
func NewCrossingContract(cfg Config, logger *zap.Logger) (*CrossingContract, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.RPCURL, err)
	}

	gameABI, err := loadABI("CrossForCoffee.json")
	if err != nil {
		client.Close()
		return nil, err
	}

	s, err := newSigner(client, cfg.PrivateKeyHex, cfg.ChainID, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	token, err := newTokenContract(common.HexToAddress(cfg.TokenAddress), s)
	if err != nil {
		client.Close()
		return nil, err
	}

	address := common.HexToAddress(cfg.GameAddress)
	c := &CrossingContract{
		Client:     client,
		Contract:   bind.NewBoundContract(address, gameABI, client, client, client),
		ABI:        gameABI,
		Address:    address,
		Token:      token,
		signer:     s,
		logger:     logger,
		lastEvents: make(map[common.Address]map[string]interface{}),
	}

	logger.Info("✅ Contract client initialized",
		zap.String("game", address.Hex()),
		zap.String("token", token.Address.Hex()),
		zap.String("player", s.from.Hex()),
		zap.Int64("chainId", cfg.ChainID))

	return c, nil
}

// Player is the wallet address that signs playGame.
func (c *CrossingContract) Player() string {
	return c.signer.from.Hex()
}

// Balance returns the player's token balance in base units.
func (c *CrossingContract) Balance(ctx context.Context, player string) (*big.Int, error) {
	return c.Token.BalanceOf(ctx, common.HexToAddress(player))
}

// SubmitAndPlay approves the bet if needed, sends playGame and waits for it
// to be mined. The GameResult event of the receipt is returned on the TxRef
// and kept for FetchOutcome. Calls are serialized per signing wallet.
func (c *CrossingContract) SubmitAndPlay(ctx context.Context, tier game.Tier, targetLane int, amount *big.Int) (ledger.TxRef, error) {
	if !tier.Valid() || targetLane < 1 || targetLane > 255 {
		return ledger.TxRef{}, game.ErrInvalidLane
	}
	if amount == nil || amount.Sign() <= 0 {
		return ledger.TxRef{}, game.ErrInvalidBet
	}

	c.signer.sendMu.Lock()
	defer c.signer.sendMu.Unlock()

	if err := c.Token.EnsureAllowance(ctx, c.Address, amount); err != nil {
		return ledger.TxRef{}, fmt.Errorf("token approval: %w", err)
	}

	input, err := c.ABI.Pack("playGame", uint8(tier), uint8(targetLane), amount)
	if err != nil {
		return ledger.TxRef{}, fmt.Errorf("failed to pack input: %w", err)
	}

	auth, err := c.signer.transactor(ctx, c.Address, input)
	if err != nil {
		return ledger.TxRef{}, err
	}

	c.logger.Info("🎲 Calling playGame",
		zap.String("difficulty", tier.String()),
		zap.Int("lanesBet", targetLane),
		zap.String("amount", amount.String()),
		zap.Uint64("gasLimit", auth.GasLimit))

	tx, err := c.Contract.Transact(auth, "playGame", uint8(tier), uint8(targetLane), amount)
	if err != nil {
		c.logger.Error("❌ playGame failed", zap.Error(err))
		return ledger.TxRef{}, err
	}

	c.logger.Info("📤 playGame tx sent, waiting for confirmation", zap.String("tx", tx.Hash().Hex()))

	receipt, err := c.signer.waitMined(ctx, tx)
	if err != nil {
		return ledger.TxRef{}, err
	}

	ref := ledger.TxRef{
		Hash:        tx.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Player:      c.signer.from.Hex(),
	}
	if fields := c.captureGameResult(receipt, c.signer.from); fields != nil {
		ref.Result = fields
	} else {
		c.logger.Warn("⚠️ playGame receipt has no GameResult event", zap.String("tx", ref.Hash))
	}
	return ref, nil
}

// captureGameResult decodes GameResult logs emitted by this contract and
// returns the one for player, or nil.
func (c *CrossingContract) captureGameResult(receipt *types.Receipt, player common.Address) map[string]interface{} {
	event, ok := c.ABI.Events["GameResult"]
	if !ok {
		return nil
	}

	var mine map[string]interface{}

	for _, lg := range receipt.Logs {
		if lg.Address != c.Address || len(lg.Topics) < 2 || lg.Topics[0] != event.ID {
			continue
		}

		fields := make(map[string]interface{})
		if err := c.ABI.UnpackIntoMap(fields, "GameResult", lg.Data); err != nil {
			c.logger.Warn("⚠️ Failed to decode GameResult event", zap.Error(err))
			continue
		}
		emitter := common.BytesToAddress(lg.Topics[1].Bytes())
		fields["player"] = emitter.Hex()

		c.eventsMu.Lock()
		c.lastEvents[emitter] = fields
		c.eventsMu.Unlock()

		if emitter == player {
			mine = fields
		}

		c.logger.Info("📥 GameResult event captured",
			zap.String("player", emitter.Hex()),
			zap.Any("won", fields["won"]),
			zap.Any("lanesCrossed", fields["lanesCrossed"]))
	}
	return mine
}

// FetchOutcome reads getLastGameResult for player and returns it as a
// positional tuple. When the view call fails, the last GameResult event
// captured from our own receipts is returned instead, as a map of named fields.
// A nil result means the player has no recorded game.
func (c *CrossingContract) FetchOutcome(ctx context.Context, player string) (interface{}, error) {
	address := common.HexToAddress(player)
	record, err := c.LastGameResult(ctx, address)
	return c.resolveOutcome(address, record, err)
}

func (c *CrossingContract) resolveOutcome(player common.Address, record GameRecord, callErr error) (interface{}, error) {
	if callErr == nil {
		if record.LanesBet == 0 {
			return nil, nil
		}
		return record.Tuple(), nil
	}

	c.eventsMu.RLock()
	event, ok := c.lastEvents[player]
	c.eventsMu.RUnlock()
	if ok {
		c.logger.Warn("⚠️ getLastGameResult failed, using captured event", zap.Error(callErr))
		return event, nil
	}

	return nil, fmt.Errorf("%w: %v", game.ErrOutcomeUnavailable, callErr)
}

// LastGameResult calls the getLastGameResult view.
func (c *CrossingContract) LastGameResult(ctx context.Context, player common.Address) (GameRecord, error) {
	var out []interface{}
	if err := c.Contract.Call(&bind.CallOpts{Context: ctx}, &out, "getLastGameResult", player); err != nil {
		return GameRecord{}, fmt.Errorf("getLastGameResult failed: %w", err)
	}
	if len(out) == 0 {
		return GameRecord{}, fmt.Errorf("getLastGameResult returned nothing")
	}
	return *abi.ConvertType(out[0], new(GameRecord)).(*GameRecord), nil
}

// Close closes the client connection
func (c *CrossingContract) Close() {
	c.Client.Close()
}
