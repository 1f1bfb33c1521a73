package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// RoundContractABI is the part of the sale escrow contract the engine consumes.
const RoundContractABI = `[
	{"type":"event","name":"Contributed","anonymous":false,"inputs":[
		{"name":"wallet","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"referrer","type":"address","indexed":false}]},
	{"type":"function","name":"status","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"totalRaised","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"softCap","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"finalizeSuccess","stateMutability":"nonpayable","inputs":[
		{"name":"merkleRoot","type":"bytes32"},{"name":"totalAllocation","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"finalizeFailed","stateMutability":"nonpayable","inputs":[
		{"name":"reason","type":"string"}],"outputs":[]}
]`

// ContributedTopic is keccak256("Contributed(address,uint256,address)").
var ContributedTopic = crypto.Keccak256Hash([]byte("Contributed(address,uint256,address)"))

var roundABI = mustParseABI(RoundContractABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid round contract abi: %v", err))
	}
	return parsed
}

// RoundABI returns the parsed contract ABI.
func RoundABI() abi.ABI {
	return roundABI
}

// OnChainStatus mirrors the contract's status() enum.
type OnChainStatus uint8

const (
	OnChainPending OnChainStatus = iota
	OnChainActive
	OnChainEnded
	OnChainFinalizedSuccess
	OnChainFinalizedFailed
	OnChainCancelled
)

func (s OnChainStatus) String() string {
	switch s {
	case OnChainPending:
		return "PENDING"
	case OnChainActive:
		return "ACTIVE"
	case OnChainEnded:
		return "ENDED"
	case OnChainFinalizedSuccess:
		return "FINALIZED_SUCCESS"
	case OnChainFinalizedFailed:
		return "FINALIZED_FAILED"
	case OnChainCancelled:
		return "CANCELLED"
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
}

// Finalized reports whether either finalize mutation has landed.
func (s OnChainStatus) Finalized() bool {
	return s == OnChainFinalizedSuccess || s == OnChainFinalizedFailed
}

// RoundState is the authoritative custody view of a round contract.
type RoundState struct {
	Status      OnChainStatus
	TotalRaised *big.Int
	SoftCap     *big.Int
}

// ContributionEvent is a decoded Contributed log.
type ContributionEvent struct {
	Contract    common.Address
	Wallet      common.Address
	Amount      *big.Int
	Referrer    common.Address
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
}

// HasReferrer is false for the zero address.
func (e ContributionEvent) HasReferrer() bool {
	return e.Referrer != (common.Address{})
}

// DecodeContributed decodes a Contributed log.
func DecodeContributed(lg types.Log) (ContributionEvent, error) {
	if len(lg.Topics) < 2 || lg.Topics[0] != ContributedTopic {
		return ContributionEvent{}, fmt.Errorf("log %s/%d is not a Contributed event", lg.TxHash.Hex(), lg.Index)
	}
	var body struct {
		Amount   *big.Int
		Referrer common.Address
	}
	if err := roundABI.UnpackIntoInterface(&body, "Contributed", lg.Data); err != nil {
		return ContributionEvent{}, fmt.Errorf("failed to unpack Contributed data: %w", err)
	}
	return ContributionEvent{
		Contract:    lg.Address,
		Wallet:      common.BytesToAddress(lg.Topics[1].Bytes()),
		Amount:      body.Amount,
		Referrer:    body.Referrer,
		TxHash:      lg.TxHash,
		BlockNumber: lg.BlockNumber,
		LogIndex:    lg.Index,
	}, nil
}
