package state

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// SigningKey is a 32-byte shared key, hex-encoded in yaml.
type SigningKey []byte

func (k SigningKey) MarshalYAML() ([]byte, error) {
	return []byte(hex.EncodeToString(k)), nil
}

func (k *SigningKey) UnmarshalYAML(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" {
		*k = nil
		return nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("signing key must be hex: %w", err)
	}
	*k = b
	return nil
}

// NodeCfg represents node-level configuration.
type NodeCfg struct {
	Network string `yaml:"network,omitempty"` // informational network id

	// NodeID is this node's address, or AutoAddress to request one from
	// the gateway at startup.
	NodeID uint8 `yaml:"node_id"`
	// ParentID pins a static parent, or AutoAddress for dynamic search.
	ParentID uint8 `yaml:"parent_id"`

	Gateway  bool `yaml:"gateway,omitempty"`
	Repeater bool `yaml:"repeater,omitempty"`

	SigningKey SigningKey `yaml:"signing_key,omitempty"`

	StoreDriver string `yaml:"store_driver,omitempty"` // file (default) or sqlite
	StorePath   string `yaml:"store_path"`

	// Listen and Peers configure the UDP radio: the local bind address and
	// the id -> address map of reachable neighbours.
	Listen string           `yaml:"listen,omitempty"`
	Peers  map[uint8]string `yaml:"peers,omitempty"`

	LogPath string `yaml:"log_path,omitempty"`
}

// AutoParent reports whether the parent is found dynamically.
func (c *NodeCfg) AutoParent() bool {
	return c.ParentID == AutoAddress
}

// MaxTransmissionFailures is the failed-uplink threshold before a new
// parent search; repeaters tolerate more since they carry foreign traffic.
func (c *NodeCfg) MaxTransmissionFailures() uint8 {
	if c.Repeater {
		return TransmissionFailuresRepeater
	}
	return TransmissionFailures
}

func NodeConfigValidator(cfg *NodeCfg) error {
	if cfg.Gateway {
		if cfg.NodeID != GatewayAddress && cfg.NodeID != AutoAddress {
			return fmt.Errorf("gateway must use node id %d, got %d", GatewayAddress, cfg.NodeID)
		}
		if cfg.ParentID != AutoAddress {
			return fmt.Errorf("gateway cannot have a parent")
		}
	} else {
		if cfg.NodeID == GatewayAddress {
			return fmt.Errorf("node id %d is reserved for the gateway", GatewayAddress)
		}
		if cfg.ParentID == cfg.NodeID && cfg.NodeID != AutoAddress {
			return fmt.Errorf("node cannot be its own parent")
		}
	}
	if len(cfg.SigningKey) != 0 && len(cfg.SigningKey) != 32 {
		return fmt.Errorf("signing key must be 32 bytes, got %d", len(cfg.SigningKey))
	}
	if cfg.StorePath == "" {
		return fmt.Errorf("store_path must be set")
	}
	switch cfg.StoreDriver {
	case "", "file", "sqlite":
	default:
		return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	return nil
}
