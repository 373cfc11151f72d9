package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenInfo is the bonding curve's record for a launched agent token
type TokenInfo struct {
	Creator          common.Address
	Token            common.Address
	Pair             common.Address
	AgentToken       common.Address
	Description      string
	Image            string
	Trading          bool
	TradingOnUniswap bool
}

// LaunchParams are the arguments of the bonding curve launch call
type LaunchParams struct {
	Name           string
	Ticker         string
	Description    string
	Image          string
	URLs           [4]string
	PurchaseAmount *big.Int
}

// Allowance reads token.allowance(owner, spender)
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return c.callBig(ctx, token, erc20ABI, "allowance", owner, spender)
}

// Approve sends token.approve(spender, amount)
func (c *Client) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (Pending, error) {
	return c.transact(ctx, token, erc20ABI, "approve", spender, amount)
}

// BalanceOf reads token.balanceOf(account)
func (c *Client) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	return c.callBig(ctx, token, erc20ABI, "balanceOf", account)
}

// TotalSupply reads token.totalSupply()
func (c *Client) TotalSupply(ctx context.Context, token common.Address) (*big.Int, error) {
	return c.callBig(ctx, token, erc20ABI, "totalSupply")
}

// Decimals reads token.decimals()
func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := c.call(ctx, token, erc20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("decimals returned no values")
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals output is %T", out[0])
	}
	return d, nil
}

// Reserves reads pair.getReserves()
func (c *Client) Reserves(ctx context.Context, pair common.Address) (*big.Int, *big.Int, error) {
	out, err := c.call(ctx, pair, pairABI, "getReserves")
	if err != nil {
		return nil, nil, err
	}
	r0, err := bigOut(out, 0)
	if err != nil {
		return nil, nil, err
	}
	r1, err := bigOut(out, 1)
	if err != nil {
		return nil, nil, err
	}
	return r0, r1, nil
}

// Buy sends curve.buy(amountIn, token)
func (c *Client) Buy(ctx context.Context, curve common.Address, amountIn *big.Int, token common.Address) (Pending, error) {
	return c.transact(ctx, curve, bondingABI, "buy", amountIn, token)
}

// Sell sends curve.sell(amountIn, token)
func (c *Client) Sell(ctx context.Context, curve common.Address, amountIn *big.Int, token common.Address) (Pending, error) {
	return c.transact(ctx, curve, bondingABI, "sell", amountIn, token)
}

// Fee reads curve.fee()
func (c *Client) Fee(ctx context.Context, curve common.Address) (*big.Int, error) {
	return c.callBig(ctx, curve, bondingABI, "fee")
}

// GradThreshold reads curve.gradThreshold()
func (c *Client) GradThreshold(ctx context.Context, curve common.Address) (*big.Int, error) {
	return c.callBig(ctx, curve, bondingABI, "gradThreshold")
}

// InitialLiquidity reads curve.L()
func (c *Client) InitialLiquidity(ctx context.Context, curve common.Address) (*big.Int, error) {
	return c.callBig(ctx, curve, bondingABI, "L")
}

// TokenInfo reads curve.tokenInfo(token)
func (c *Client) TokenInfo(ctx context.Context, curve, token common.Address) (TokenInfo, error) {
	out, err := c.call(ctx, curve, bondingABI, "tokenInfo", token)
	if err != nil {
		return TokenInfo{}, err
	}
	if len(out) != 8 {
		return TokenInfo{}, fmt.Errorf("tokenInfo returned %d values", len(out))
	}

	var info TokenInfo
	var ok [8]bool
	info.Creator, ok[0] = out[0].(common.Address)
	info.Token, ok[1] = out[1].(common.Address)
	info.Pair, ok[2] = out[2].(common.Address)
	info.AgentToken, ok[3] = out[3].(common.Address)
	info.Description, ok[4] = out[4].(string)
	info.Image, ok[5] = out[5].(string)
	info.Trading, ok[6] = out[6].(bool)
	info.TradingOnUniswap, ok[7] = out[7].(bool)
	for i, good := range ok {
		if !good {
			return TokenInfo{}, fmt.Errorf("tokenInfo output %d has type %T", i, out[i])
		}
	}
	return info, nil
}

// Launch sends curve.launch(...)
func (c *Client) Launch(ctx context.Context, curve common.Address, p LaunchParams) (Pending, error) {
	return c.transact(ctx, curve, bondingABI, "launch",
		p.Name, p.Ticker, p.Description, p.Image, p.URLs, p.PurchaseAmount)
}

// SwapExactTokensForTokensSupportingFeeOnTransferTokens sends the router swap
func (c *Client) SwapExactTokensForTokensSupportingFeeOnTransferTokens(
	ctx context.Context,
	router common.Address,
	amountIn, amountOutMin *big.Int,
	path []common.Address,
	to, referrer common.Address,
	deadline *big.Int,
) (Pending, error) {
	return c.transact(ctx, router, routerABI, "swapExactTokensForTokensSupportingFeeOnTransferTokens",
		amountIn, amountOutMin, path, to, referrer, deadline)
}

// SendForumMessage sends forum.sendForumMessage(token, message)
func (c *Client) SendForumMessage(ctx context.Context, forum, token common.Address, message string) (Pending, error) {
	return c.transact(ctx, forum, forumABI, "sendForumMessage", token, message)
}

// DefaultBurnAmount reads forum.defaultBurnAmount()
func (c *Client) DefaultBurnAmount(ctx context.Context, forum common.Address) (*big.Int, error) {
	return c.callBig(ctx, forum, forumABI, "defaultBurnAmount")
}

// MaxMessageLength reads forum.maxMessageLength()
func (c *Client) MaxMessageLength(ctx context.Context, forum common.Address) (*big.Int, error) {
	return c.callBig(ctx, forum, forumABI, "maxMessageLength")
}

// MinMessageLength reads forum.minMessageLength()
func (c *Client) MinMessageLength(ctx context.Context, forum common.Address) (*big.Int, error) {
	return c.callBig(ctx, forum, forumABI, "minMessageLength")
}

// IsClaimed reads registry.isClaimed(distributionID, index)
func (c *Client) IsClaimed(ctx context.Context, registry common.Address, distributionID string, index *big.Int) (bool, error) {
	out, err := c.call(ctx, registry, claimRegistryABI, "isClaimed", distributionID, index)
	if err != nil {
		return false, err
	}
	if len(out) == 0 {
		return false, fmt.Errorf("isClaimed returned no values")
	}
	claimed, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("isClaimed output is %T", out[0])
	}
	return claimed, nil
}

// Claim sends registry.claim(distributionID, index, account, amount, proof)
func (c *Client) Claim(ctx context.Context, registry common.Address, distributionID string, index *big.Int, account common.Address, amount *big.Int, proof [][32]byte) (Pending, error) {
	return c.transact(ctx, registry, claimRegistryABI, "claim", distributionID, index, account, amount, proof)
}
