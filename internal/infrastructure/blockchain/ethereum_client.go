package blockchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ens-identity-graph/internal/domain/repository"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

var (
	// ErrInvalidName is returned for names with empty labels
	ErrInvalidName = errors.New("invalid ENS name")

	// ErrNoResolver is returned when the registry has no resolver for a name
	ErrNoResolver = errors.New("no resolver set")

	// ErrRecordNotSet is returned when the resolver has no address for a name
	ErrRecordNotSet = errors.New("record not set")
)

const ensABI = `[
	{"name":"resolver","type":"function","stateMutability":"view",
	 "inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"name":"addr","type":"function","stateMutability":"view",
	 "inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"name":"text","type":"function","stateMutability":"view",
	 "inputs":[{"name":"node","type":"bytes32"},{"name":"key","type":"string"}],"outputs":[{"name":"","type":"string"}]}
]`

var parsedENSABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(ensABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// EthereumClient resolves ENS names through read-only calls against an RPC endpoint
type EthereumClient struct {
	config   *config.EthereumConfig
	registry common.Address
	caller   ethereum.ContractCaller
	closer   func()
	logger   *logger.Logger
}

// NewEthereumClient creates a new Ethereum client; Connect dials the endpoint
func NewEthereumClient(cfg *config.EthereumConfig, logger *logger.Logger) *EthereumClient {
	return &EthereumClient{
		config:   cfg,
		registry: common.HexToAddress(cfg.RegistryAddress),
		logger:   logger.WithComponent("ethereum-client"),
	}
}

// NewEthereumClientWithCaller creates a client over an existing contract caller
func NewEthereumClientWithCaller(cfg *config.EthereumConfig, caller ethereum.ContractCaller, logger *logger.Logger) *EthereumClient {
	c := NewEthereumClient(cfg, logger)
	c.caller = caller
	return c
}

// Connect dials the configured RPC endpoint
func (ec *EthereumClient) Connect(ctx context.Context) error {
	if !ec.config.Enabled || ec.config.RPCURL == "" {
		ec.logger.Info("Ethereum RPC disabled, name resolution unavailable")
		return nil
	}

	client, err := ethclient.DialContext(ctx, ec.config.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to dial ethereum rpc: %w", err)
	}

	ec.caller = client
	ec.closer = client.Close
	ec.logger.Info("Connected to Ethereum RPC")
	return nil
}

// Close releases the RPC connection
func (ec *EthereumClient) Close() {
	if ec.closer != nil {
		ec.closer()
		ec.closer = nil
	}
	ec.caller = nil
}

// Resolver returns the resolver contract address for a name
func (ec *EthereumClient) Resolver(ctx context.Context, name string) (string, error) {
	resolver, err := ec.resolver(ctx, name)
	if err != nil {
		return "", err
	}
	return resolver.Hex(), nil
}

// Address returns the address record of a name
func (ec *EthereumClient) Address(ctx context.Context, name string) (string, error) {
	node, err := NameHash(name)
	if err != nil {
		return "", err
	}
	resolver, err := ec.resolver(ctx, name)
	if err != nil {
		return "", err
	}

	var addr common.Address
	if err := ec.call(ctx, resolver, "addr", &addr, node); err != nil {
		return "", err
	}
	if addr == (common.Address{}) {
		return "", ErrRecordNotSet
	}
	return addr.Hex(), nil
}

// Text returns a text record of a name; an unset record is an empty string
func (ec *EthereumClient) Text(ctx context.Context, name, key string) (string, error) {
	node, err := NameHash(name)
	if err != nil {
		return "", err
	}
	resolver, err := ec.resolver(ctx, name)
	if err != nil {
		return "", err
	}

	var value string
	if err := ec.call(ctx, resolver, "text", &value, node, key); err != nil {
		return "", err
	}
	return value, nil
}

func (ec *EthereumClient) resolver(ctx context.Context, name string) (common.Address, error) {
	node, err := NameHash(name)
	if err != nil {
		return common.Address{}, err
	}

	var resolver common.Address
	if err := ec.call(ctx, ec.registry, "resolver", &resolver, node); err != nil {
		return common.Address{}, err
	}
	if resolver == (common.Address{}) {
		return common.Address{}, ErrNoResolver
	}
	return resolver, nil
}

func (ec *EthereumClient) call(ctx context.Context, to common.Address, method string, out interface{}, args ...interface{}) error {
	if ec.caller == nil {
		return repository.ErrNotConnected
	}

	data, err := parsedENSABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	if ec.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ec.config.CallTimeout)
		defer cancel()
	}

	started := time.Now()
	raw, err := ec.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		ec.logger.Debug("ENS call failed",
			zap.String("method", method),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return fmt.Errorf("failed to call %s: %w", method, err)
	}

	values, err := parsedENSABI.Unpack(method, raw)
	if err != nil {
		return fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(values) != 1 {
		return fmt.Errorf("unexpected %s result width %d", method, len(values))
	}

	switch target := out.(type) {
	case *common.Address:
		v, ok := values[0].(common.Address)
		if !ok {
			return fmt.Errorf("unexpected %s result type %T", method, values[0])
		}
		*target = v
	case *string:
		v, ok := values[0].(string)
		if !ok {
			return fmt.Errorf("unexpected %s result type %T", method, values[0])
		}
		*target = v
	default:
		return fmt.Errorf("unsupported output type %T", out)
	}
	return nil
}

// NormalizeName lowercases and trims a name
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NameHash computes the EIP-137 namehash of a normalized name
func NameHash(name string) (common.Hash, error) {
	var node common.Hash
	name = NormalizeName(name)
	if name == "" {
		return node, nil
	}

	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		if labels[i] == "" {
			return common.Hash{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		labelHash := crypto.Keccak256Hash([]byte(labels[i]))
		node = crypto.Keccak256Hash(node.Bytes(), labelHash.Bytes())
	}
	return node, nil
}

// IsValidAddress checks if the address format is valid
func IsValidAddress(address string) bool {
	// Basic validation: starts with 0x and has 42 chars total
	address = strings.ToLower(address)
	if len(address) != 42 {
		return false
	}

	if !strings.HasPrefix(address, "0x") {
		return false
	}

	// Check if remaining chars are valid hex
	hexPart := address[2:]
	for _, char := range hexPart {
		if !((char >= '0' && char <= '9') || (char >= 'a' && char <= 'f')) {
			return false
		}
	}

	return true
}
