package airdrop

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"sparkagent-launchpad/pkg/chain"
)

// Registry is the claim registry surface the orchestrator needs
type Registry interface {
	IsClaimed(ctx context.Context, registry common.Address, distributionID string, index *big.Int) (bool, error)
	Claim(ctx context.Context, registry common.Address, distributionID string, index *big.Int, account common.Address, amount *big.Int, proof [][32]byte) (chain.Pending, error)
}

// Account is the wallet claiming
type Account interface {
	Address() common.Address
}

// Status is the eligibility of one account for one distribution
type Status struct {
	ID          DistributionID
	Name        string
	Claims      []ClaimEntry
	ClaimAmount *big.Int
	IsClaimed   bool
	IsEligible  bool
}

// Eligibility is the combined result over all distributions
type Eligibility struct {
	Account       common.Address
	Distributions []Status
}

// Get returns the status of one distribution
func (e Eligibility) Get(id DistributionID) (Status, bool) {
	for _, s := range e.Distributions {
		if s.ID == id {
			return s, true
		}
	}
	return Status{}, false
}

// CheckEligibility sums each distribution's matching entries and reads the
// registry in entry order until one reports claimed. A failed registry read
// is logged and skipped. Nothing is written on chain.
func (o *Orchestrator) CheckEligibility(ctx context.Context) (Eligibility, error) {
	account := o.account.Address()
	result := Eligibility{Account: account}

	for _, d := range o.distributions {
		if err := ctx.Err(); err != nil {
			return Eligibility{}, err
		}

		status := Status{
			ID:          d.ID,
			Name:        d.Name,
			Claims:      d.Dataset.ClaimsFor(account),
			ClaimAmount: new(big.Int),
		}

		for _, c := range status.Claims {
			status.ClaimAmount.Add(status.ClaimAmount, c.Amount.Int())

			if status.IsClaimed {
				continue
			}
			claimed, err := o.registry.IsClaimed(ctx, o.registryAddress, string(d.ID), c.Index.Int())
			if err != nil {
				o.logger.Warn("claim status read failed",
					zap.String("distribution", string(d.ID)),
					zap.String("index", c.Index.String()),
					zap.Error(err))
				continue
			}
			status.IsClaimed = claimed
		}

		status.IsEligible = status.ClaimAmount.Sign() > 0
		result.Distributions = append(result.Distributions, status)
	}

	return result, nil
}
