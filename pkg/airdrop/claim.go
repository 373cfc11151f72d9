package airdrop

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ClaimResult is the outcome of one claim entry
type ClaimResult struct {
	Distribution DistributionID
	Entry        ClaimEntry
	TxHash       common.Hash
	Err          error
}

// ClaimReport summarizes a HandleClaim call
type ClaimReport struct {
	Claimed     []ClaimResult
	Skipped     []ClaimResult
	Failed      []ClaimResult
	Eligibility Eligibility
}

// Orchestrator checks eligibility and claims airdrop entries for one account
type Orchestrator struct {
	registry        Registry
	registryAddress common.Address
	account         Account
	distributions   []Distribution
	logger          *zap.Logger

	continueOnError bool
	onClaimed       func(ClaimResult, Eligibility)
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithContinueOnError keeps claiming the remaining entries after a failure
func WithContinueOnError(enabled bool) Option {
	return func(o *Orchestrator) { o.continueOnError = enabled }
}

// WithOnClaimed registers a callback run after every confirmed claim with
// the refreshed eligibility
func WithOnClaimed(fn func(ClaimResult, Eligibility)) Option {
	return func(o *Orchestrator) { o.onClaimed = fn }
}

// New creates an airdrop orchestrator. Distributions are processed in the
// given order; a nil dataset counts as zero claims.
func New(registry Registry, registryAddress common.Address, account Account, distributions []Distribution, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:        registry,
		registryAddress: registryAddress,
		account:         account,
		distributions:   distributions,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleClaim submits every unclaimed entry of the account, one at a time.
// Claimed status is read again right before each submission. By default the
// first failure aborts the batch.
func (o *Orchestrator) HandleClaim(ctx context.Context) (*ClaimReport, error) {
	account := o.account.Address()
	report := &ClaimReport{}
	var errs []error

	for _, d := range o.distributions {
		for _, entry := range d.Dataset.ClaimsFor(account) {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			res := o.claimOne(ctx, d.ID, account, entry)
			switch {
			case res.Err != nil:
				report.Failed = append(report.Failed, res)
				if !o.continueOnError {
					return report, res.Err
				}
				errs = append(errs, res.Err)
			case res.TxHash == (common.Hash{}):
				report.Skipped = append(report.Skipped, res)
			default:
				report.Claimed = append(report.Claimed, res)

				elig, err := o.CheckEligibility(ctx)
				if err != nil {
					return report, err
				}
				report.Eligibility = elig
				if o.onClaimed != nil {
					o.onClaimed(res, elig)
				}
			}
		}
	}

	if len(report.Claimed) == 0 {
		elig, err := o.CheckEligibility(ctx)
		if err != nil {
			return report, err
		}
		report.Eligibility = elig
	}
	return report, errors.Join(errs...)
}

func (o *Orchestrator) claimOne(ctx context.Context, id DistributionID, account common.Address, entry ClaimEntry) ClaimResult {
	res := ClaimResult{Distribution: id, Entry: entry}
	logger := o.logger.With(
		zap.String("distribution", string(id)),
		zap.String("index", entry.Index.String()),
		zap.String("amount", entry.Amount.String()))

	claimed, err := o.registry.IsClaimed(ctx, o.registryAddress, string(id), entry.Index.Int())
	if err != nil {
		res.Err = fmt.Errorf("%s claim %s: status read: %w", id, entry.Index, err)
		return res
	}
	if claimed {
		logger.Info("already claimed, skipping")
		return res
	}

	pending, err := o.registry.Claim(ctx, o.registryAddress, string(id), entry.Index.Int(), account, entry.Amount.Int(), entry.ProofBytes())
	if err != nil {
		res.Err = fmt.Errorf("%s claim %s: %w", id, entry.Index, err)
		return res
	}
	logger.Info("claim submitted", zap.String("hash", pending.Hash().Hex()))

	if _, err := pending.Wait(ctx); err != nil {
		res.Err = fmt.Errorf("%s claim %s: %w", id, entry.Index, err)
		return res
	}

	res.TxHash = pending.Hash()
	logger.Info("claim confirmed", zap.String("hash", res.TxHash.Hex()))
	return res
}
