package position

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"yieldFarm/internal/dex"
	"yieldFarm/internal/model"
	"yieldFarm/internal/storage"
)

var ErrTxFailed = errors.New("transaction reverted")

// Backend is the chain access the submitter needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	GetChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	WaitMined(ctx context.Context, hash common.Hash, interval time.Duration) (*types.Receipt, error)
}

// Calldata is an unsigned call to the position manager.
type Calldata struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

// DryRun returns the mint call without signing it.
func DryRun(manager common.Address, params model.MintParams) (Calldata, error) {
	data, err := dex.PackMint(params)
	if err != nil {
		return Calldata{}, err
	}
	value := params.Value
	if value == nil {
		value = new(big.Int)
	}
	return Calldata{To: manager.Hex(), Data: hexutil.Encode(data), Value: value.String()}, nil
}

// SubmitterConfig configures a Submitter.
type SubmitterConfig struct {
	PrivateKey      string
	PositionManager common.Address
	WrappedNative   common.Address
	ReceiptInterval time.Duration
	// GasMarginPercent is added on top of the gas estimate.
	GasMarginPercent uint64
}

// Submitter approves, signs and broadcasts mint transactions and journals
// the result.
type Submitter struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	cfg     SubmitterConfig
	journal storage.Journal
	decoder *dex.PoolEventDecoder
	logger  *zap.Logger
	now     func() time.Time
	chainID *big.Int
}

func NewSubmitter(backend Backend, cfg SubmitterConfig, journal storage.Journal, logger *zap.Logger) (*Submitter, error) {
	if backend == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	decoder, err := dex.NewPoolEventDecoder()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReceiptInterval <= 0 {
		cfg.ReceiptInterval = 2 * time.Second
	}
	if cfg.GasMarginPercent == 0 {
		cfg.GasMarginPercent = 20
	}
	return &Submitter{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		cfg:     cfg,
		journal: journal,
		decoder: decoder,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Address returns the signing account.
func (s *Submitter) Address() common.Address {
	return s.from
}

// Submit approves both sides as needed, mints, waits for the receipt and
// appends a record to the journal.
func (s *Submitter) Submit(ctx context.Context, params model.MintParams) (model.PositionRecord, error) {
	manager := s.cfg.PositionManager
	if manager == (common.Address{}) {
		return model.PositionRecord{}, fmt.Errorf("position manager address is not configured")
	}
	data, err := dex.PackMint(params)
	if err != nil {
		return model.PositionRecord{}, err
	}

	chainID, err := s.chain(ctx)
	if err != nil {
		return model.PositionRecord{}, err
	}

	sides := []struct {
		token  string
		amount *big.Int
	}{
		{params.Token0, params.Amount0Desired},
		{params.Token1, params.Amount1Desired},
	}
	for _, side := range sides {
		if s.paidNatively(side.token, params.Value) {
			continue
		}
		if err := s.ensureAllowance(ctx, common.HexToAddress(side.token), side.amount); err != nil {
			return model.PositionRecord{}, err
		}
	}

	value := params.Value
	if value == nil {
		value = new(big.Int)
	}
	receipt, err := s.send(ctx, manager, data, value)
	if err != nil {
		return model.PositionRecord{}, fmt.Errorf("mint: %w", err)
	}

	record := model.PositionRecord{
		ChainID:     chainID.Uint64(),
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Owner:       params.Recipient,
		Token0:      params.Token0,
		Token1:      params.Token1,
		Fee:         uint32(params.Fee),
		TickLower:   params.TickLower,
		TickUpper:   params.TickUpper,
		Amount0:     amountString(params.Amount0Desired),
		Amount1:     amountString(params.Amount1Desired),
		SubmittedAt: s.now().UTC(),
	}
	if increase, ok := s.decoder.FindIncreaseLiquidity(receipt.Logs); ok {
		record.TokenID = increase.TokenID
		record.Liquidity = increase.Liquidity
		record.Amount0 = increase.Amount0
		record.Amount1 = increase.Amount1
	} else {
		s.logger.Warn("mint receipt has no IncreaseLiquidity event", zap.String("tx", record.TxHash))
	}

	if s.journal != nil {
		if err := s.journal.Append(ctx, record); err != nil {
			return record, fmt.Errorf("journal position: %w", err)
		}
	}

	s.logger.Info("position minted",
		zap.String("tx", record.TxHash),
		zap.Uint64("block", record.BlockNumber),
		zap.String("token_id", record.TokenID),
		zap.Int("tick_lower", record.TickLower),
		zap.Int("tick_upper", record.TickUpper),
	)
	return record, nil
}

func (s *Submitter) paidNatively(token string, value *big.Int) bool {
	return value != nil && value.Sign() > 0 && s.cfg.WrappedNative != (common.Address{}) &&
		strings.EqualFold(token, s.cfg.WrappedNative.Hex())
}

func (s *Submitter) ensureAllowance(ctx context.Context, token common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	allowance, err := dex.Allowance(ctx, s.backend, token, s.from, s.cfg.PositionManager)
	if err != nil {
		return fmt.Errorf("allowance %s: %w", token.Hex(), err)
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}

	data, err := dex.PackApprove(s.cfg.PositionManager, amount)
	if err != nil {
		return err
	}
	receipt, err := s.send(ctx, token, data, new(big.Int))
	if err != nil {
		return fmt.Errorf("approve %s: %w", token.Hex(), err)
	}
	s.logger.Info("token approved",
		zap.String("token", token.Hex()),
		zap.String("amount", amount.String()),
		zap.String("tx", receipt.TxHash.Hex()),
	)
	return nil
}

func (s *Submitter) chain(ctx context.Context) (*big.Int, error) {
	if s.chainID != nil {
		return s.chainID, nil
	}
	chainID, err := s.backend.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	s.chainID = chainID
	return chainID, nil
}

// send signs a transaction, broadcasts it and waits until it is mined.
// Dynamic fee transactions are used when the head block has a base fee.
func (s *Submitter) send(ctx context.Context, to common.Address, data []byte, value *big.Int) (*types.Receipt, error) {
	chainID, err := s.chain(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{From: s.from, To: &to, Value: value, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	gas += gas * s.cfg.GasMarginPercent / 100

	head, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get head: %w", err)
	}

	var tx *types.Transaction
	if head.BaseFee != nil {
		tip, err := s.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("suggest tip: %w", err)
		}
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        &to,
			Value:     value,
			Data:      data,
		})
	} else {
		price, err := s.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("suggest gas price: %w", err)
		}
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: price,
			Gas:      gas,
			To:       &to,
			Value:    value,
			Data:     data,
		})
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	s.logger.Debug("transaction sent", zap.String("tx", signed.Hash().Hex()), zap.String("to", to.Hex()))

	receipt, err := s.backend.WaitMined(ctx, signed.Hash(), s.cfg.ReceiptInterval)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrTxFailed, signed.Hash().Hex())
	}
	return receipt, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
