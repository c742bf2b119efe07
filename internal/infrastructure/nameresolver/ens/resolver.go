package ens

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"
	"github.com/vaultline/walletd/internal/core/domain"
	"github.com/vaultline/walletd/internal/core/ports"
)

// RegistryAddress is the address of the ENS registry on mainnet.
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

const (
	registryABI = `[{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"resolver","outputs":[{"name":"","type":"address"}],"type":"function"}]`
	resolverABI = `[
		{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
		{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"addr","outputs":[{"name":"","type":"address"}],"type":"function"}
	]`
)

// ContractCaller is the subset of the rpc client used to query the registry.
type ContractCaller interface {
	CallContract(
		ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int,
	) ([]byte, error)
}

type resolver struct {
	client      ContractCaller
	registry    common.Address
	registryABI abi.ABI
	resolverABI abi.ABI
}

// NewResolver returns a NameResolver querying the ENS registry at the given
// address through client.
func NewResolver(
	client ContractCaller, registry common.Address,
) (ports.NameResolver, error) {
	return newResolver(client, registry)
}

// Dial connects to the given rpc endpoint and returns a NameResolver for the
// mainnet registry, along with a func to close the connection.
func Dial(ctx context.Context, endpoint string) (ports.NameResolver, func(), error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	r, err := newResolver(client, RegistryAddress)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	log.WithField("endpoint", endpoint).Debug("connected to name service")
	return r, client.Close, nil
}

func newResolver(client ContractCaller, registry common.Address) (*resolver, error) {
	regABI, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, err
	}
	resABI, err := abi.JSON(strings.NewReader(resolverABI))
	if err != nil {
		return nil, err
	}
	return &resolver{
		client:      client,
		registry:    registry,
		registryABI: regABI,
		resolverABI: resABI,
	}, nil
}

// Resolve returns the primary name of addr. The name is returned only if it
// resolves back to addr.
func (r *resolver) Resolve(ctx context.Context, addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", domain.ErrInvalidAddress
	}
	address := common.HexToAddress(addr)

	reverseNode := ReverseNode(address)
	reverseResolver, err := r.resolverOf(ctx, reverseNode)
	if err != nil {
		return "", err
	}

	var name string
	if err := r.call(
		ctx, reverseResolver, r.resolverABI, "name", &name, reverseNode,
	); err != nil {
		return "", err
	}
	if name == "" {
		return "", ports.ErrNameNotFound
	}

	forwardNode := NameHash(name)
	forwardResolver, err := r.resolverOf(ctx, forwardNode)
	if err != nil {
		return "", err
	}
	var resolved common.Address
	if err := r.call(
		ctx, forwardResolver, r.resolverABI, "addr", &resolved, forwardNode,
	); err != nil {
		return "", err
	}
	if resolved != address {
		log.WithFields(log.Fields{
			"address": address.Hex(),
			"name":    name,
		}).Debug("reverse record does not resolve back to address")
		return "", ports.ErrNameNotFound
	}
	return name, nil
}

func (r *resolver) resolverOf(
	ctx context.Context, node common.Hash,
) (common.Address, error) {
	var resolverAddr common.Address
	if err := r.call(
		ctx, r.registry, r.registryABI, "resolver", &resolverAddr, node,
	); err != nil {
		return common.Address{}, err
	}
	if resolverAddr == (common.Address{}) {
		return common.Address{}, ports.ErrNameNotFound
	}
	return resolverAddr, nil
}

func (r *resolver) call(
	ctx context.Context,
	contract common.Address,
	contractABI abi.ABI,
	method string,
	out interface{},
	node common.Hash,
) error {
	input, err := contractABI.Pack(method, node)
	if err != nil {
		return err
	}
	output, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: input,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	if len(output) <= 0 {
		return ports.ErrNameNotFound
	}
	if err := contractABI.UnpackIntoInterface(out, method, output); err != nil {
		return fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return nil
}
