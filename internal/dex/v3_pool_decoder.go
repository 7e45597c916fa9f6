package dex

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"yieldFarm/internal/model"
)

// Event names handled by PoolEventDecoder.
const (
	EventMint              = "Mint"
	EventBurn              = "Burn"
	EventIncreaseLiquidity = "IncreaseLiquidity"
)

var ErrUnsupportedEvent = errors.New("unsupported event")

// PoolEvent is a decoded liquidity event. Exactly one payload is set.
type PoolEvent struct {
	Name        string
	Address     string
	BlockNumber uint64
	TxHash      string
	LogIndex    uint
	Mint        *model.MintEventData
	Burn        *model.BurnEventData
	Increase    *model.IncreaseLiquidityEventData
}

// PoolEventDecoder decodes V3 pool Mint/Burn logs and position manager
// IncreaseLiquidity logs.
type PoolEventDecoder struct {
	poolABI    abi.ABI
	managerABI abi.ABI
	topicNames map[common.Hash]string
}

// NewPoolEventDecoder builds a decoder from the bundled ABIs.
func NewPoolEventDecoder() (*PoolEventDecoder, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	managerABI, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}

	return &PoolEventDecoder{
		poolABI:    poolABI,
		managerABI: managerABI,
		topicNames: map[common.Hash]string{
			poolABI.Events[EventMint].ID:                 EventMint,
			poolABI.Events[EventBurn].ID:                 EventBurn,
			managerABI.Events[EventIncreaseLiquidity].ID: EventIncreaseLiquidity,
		},
	}, nil
}

// PoolTopics returns the topic0 values of pool Mint and Burn.
func (d *PoolEventDecoder) PoolTopics() []common.Hash {
	return []common.Hash{d.poolABI.Events[EventMint].ID, d.poolABI.Events[EventBurn].ID}
}

// CanDecode checks if topic0 is supported.
func (d *PoolEventDecoder) CanDecode(topic0 common.Hash) bool {
	_, ok := d.topicNames[topic0]
	return ok
}

// Decode converts a raw log into a PoolEvent.
func (d *PoolEventDecoder) Decode(log types.Log) (*PoolEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicNames[log.Topics[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, log.Topics[0].Hex())
	}

	event := &PoolEvent{
		Name:        name,
		Address:     log.Address.Hex(),
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    log.Index,
	}

	switch name {
	case EventMint:
		decoded, err := d.decodeMint(log)
		if err != nil {
			return nil, err
		}
		event.Mint = &decoded
	case EventBurn:
		decoded, err := d.decodeBurn(log)
		if err != nil {
			return nil, err
		}
		event.Burn = &decoded
	case EventIncreaseLiquidity:
		decoded, err := d.decodeIncreaseLiquidity(log)
		if err != nil {
			return nil, err
		}
		event.Increase = &decoded
	}
	return event, nil
}

// FindIncreaseLiquidity returns the first IncreaseLiquidity event in logs.
func (d *PoolEventDecoder) FindIncreaseLiquidity(logs []*types.Log) (*model.IncreaseLiquidityEventData, bool) {
	id := d.managerABI.Events[EventIncreaseLiquidity].ID
	for _, log := range logs {
		if log == nil || len(log.Topics) == 0 || log.Topics[0] != id {
			continue
		}
		decoded, err := d.decodeIncreaseLiquidity(*log)
		if err != nil {
			continue
		}
		return &decoded, true
	}
	return nil, false
}

func (d *PoolEventDecoder) decodeMint(log types.Log) (model.MintEventData, error) {
	event := d.poolABI.Events[EventMint]

	var indexed struct {
		Owner     common.Address
		TickLower *big.Int
		TickUpper *big.Int
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.MintEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.MintEventData{}, err
	}
	if len(values) != 4 {
		return model.MintEventData{}, fmt.Errorf("unexpected mint values: %d", len(values))
	}

	sender, err := asAddress(values[0])
	if err != nil {
		return model.MintEventData{}, err
	}
	amounts, err := bigStrings(values[1:])
	if err != nil {
		return model.MintEventData{}, err
	}
	tickLower, tickUpper, err := tickPair(indexed.TickLower, indexed.TickUpper)
	if err != nil {
		return model.MintEventData{}, err
	}

	return model.MintEventData{
		Sender:    sender.Hex(),
		Owner:     indexed.Owner.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    amounts[0],
		Amount0:   amounts[1],
		Amount1:   amounts[2],
	}, nil
}

func (d *PoolEventDecoder) decodeBurn(log types.Log) (model.BurnEventData, error) {
	event := d.poolABI.Events[EventBurn]

	var indexed struct {
		Owner     common.Address
		TickLower *big.Int
		TickUpper *big.Int
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.BurnEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.BurnEventData{}, err
	}
	if len(values) != 3 {
		return model.BurnEventData{}, fmt.Errorf("unexpected burn values: %d", len(values))
	}

	amounts, err := bigStrings(values)
	if err != nil {
		return model.BurnEventData{}, err
	}
	tickLower, tickUpper, err := tickPair(indexed.TickLower, indexed.TickUpper)
	if err != nil {
		return model.BurnEventData{}, err
	}

	return model.BurnEventData{
		Owner:     indexed.Owner.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    amounts[0],
		Amount0:   amounts[1],
		Amount1:   amounts[2],
	}, nil
}

func (d *PoolEventDecoder) decodeIncreaseLiquidity(log types.Log) (model.IncreaseLiquidityEventData, error) {
	event := d.managerABI.Events[EventIncreaseLiquidity]

	var indexed struct {
		TokenId *big.Int
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.IncreaseLiquidityEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.IncreaseLiquidityEventData{}, err
	}
	if len(values) != 3 {
		return model.IncreaseLiquidityEventData{}, fmt.Errorf("unexpected increase liquidity values: %d", len(values))
	}
	amounts, err := bigStrings(values)
	if err != nil {
		return model.IncreaseLiquidityEventData{}, err
	}

	return model.IncreaseLiquidityEventData{
		TokenID:   indexed.TokenId.String(),
		Liquidity: amounts[0],
		Amount0:   amounts[1],
		Amount1:   amounts[2],
	}, nil
}

func parseIndexed(event abi.Event, topics []common.Hash, out interface{}) error {
	args := indexedArguments(event.Inputs)
	if len(topics) != len(args)+1 {
		return fmt.Errorf("expected %d topics, got %d", len(args)+1, len(topics))
	}
	if err := abi.ParseTopics(out, args, topics[1:]); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, data []byte) ([]interface{}, error) {
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func bigStrings(values []interface{}) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, value := range values {
		n, err := asBigInt(value)
		if err != nil {
			return nil, err
		}
		out = append(out, n.String())
	}
	return out, nil
}

func tickPair(lower, upper *big.Int) (int32, int32, error) {
	if lower == nil || upper == nil {
		return 0, 0, fmt.Errorf("missing tick topics")
	}
	tickLower, err := int24FromBig(lower)
	if err != nil {
		return 0, 0, err
	}
	tickUpper, err := int24FromBig(upper)
	if err != nil {
		return 0, 0, err
	}
	return tickLower, tickUpper, nil
}
