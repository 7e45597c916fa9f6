package liquidity

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// State is the scan checkpoint: the last processed block and the net
// liquidity change at every initialized tick so far.
type State struct {
	Pool               string           `json:"pool"`
	LastProcessedBlock uint64           `json:"last_processed_block"`
	NetLiquidity       map[int32]string `json:"net_liquidity"`
	Events             int              `json:"events"`
	UpdatedAt          string           `json:"updated_at"`
}

func newState(pool string) State {
	return State{Pool: pool, NetLiquidity: make(map[int32]string)}
}

// apply adds delta at lower and subtracts it at upper.
func (s *State) apply(lower, upper int32, delta *big.Int) error {
	if lower >= upper {
		return fmt.Errorf("invalid tick range [%d, %d)", lower, upper)
	}
	if err := s.add(lower, delta); err != nil {
		return err
	}
	return s.add(upper, new(big.Int).Neg(delta))
}

func (s *State) add(tick int32, delta *big.Int) error {
	current := new(big.Int)
	if raw, ok := s.NetLiquidity[tick]; ok {
		if _, ok := current.SetString(raw, 10); !ok {
			return fmt.Errorf("corrupt net liquidity at tick %d: %q", tick, raw)
		}
	}
	current.Add(current, delta)
	if current.Sign() == 0 {
		delete(s.NetLiquidity, tick)
		return nil
	}
	s.NetLiquidity[tick] = current.String()
	return nil
}

// StateStore persists scan state to disk.
type StateStore struct {
	path    string
	enabled bool
}

func NewStateStore(path string, enabled bool) *StateStore {
	return &StateStore{path: path, enabled: enabled && path != ""}
}

// Load returns the saved state for pool. State saved for a different pool is
// ignored.
func (c *StateStore) Load(pool string) (State, bool, error) {
	if !c.enabled {
		return State{}, false, nil
	}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("stat state: %w", err)
	}
	if stat.IsDir() {
		return State{}, false, fmt.Errorf("state path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return State{}, false, fmt.Errorf("read state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("parse state: %w", err)
	}
	if !strings.EqualFold(st.Pool, pool) {
		return State{}, false, nil
	}
	if st.NetLiquidity == nil {
		st.NetLiquidity = make(map[int32]string)
	}
	return st, true, nil
}

func (c *StateStore) Save(st State) error {
	if !c.enabled {
		return nil
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	st.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}
