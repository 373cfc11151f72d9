package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI fragments for the subset of each contract the launchpad touches.

const erc20ABIJSON = `[
{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

const pairABIJSON = `[
{"inputs":[],"name":"getReserves","outputs":[{"name":"","type":"uint256"},{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const bondingABIJSON = `[
{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"tokenAddress","type":"address"}],"name":"buy","outputs":[{"name":"","type":"bool"}],"stateMutability":"payable","type":"function"},
{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"tokenAddress","type":"address"}],"name":"sell","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
{"inputs":[],"name":"fee","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"gradThreshold","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"L","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"","type":"address"}],"name":"tokenInfo","outputs":[
 {"name":"creator","type":"address"},
 {"name":"token","type":"address"},
 {"name":"pair","type":"address"},
 {"name":"agentToken","type":"address"},
 {"name":"description","type":"string"},
 {"name":"image","type":"string"},
 {"name":"trading","type":"bool"},
 {"name":"tradingOnUniswap","type":"bool"}
],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"_name","type":"string"},{"name":"_ticker","type":"string"},{"name":"desc","type":"string"},{"name":"img","type":"string"},{"name":"urls","type":"string[4]"},{"name":"purchaseAmount","type":"uint256"}],"name":"launch","outputs":[{"name":"","type":"address"},{"name":"","type":"address"},{"name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}
]`

const routerABIJSON = `[
{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"referrer","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokensSupportingFeeOnTransferTokens","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const forumABIJSON = `[
{"inputs":[{"name":"forumToken","type":"address"},{"name":"message","type":"string"}],"name":"sendForumMessage","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[],"name":"defaultBurnAmount","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"maxMessageLength","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"minMessageLength","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const claimRegistryABIJSON = `[
{"inputs":[{"name":"distributionId","type":"string"},{"name":"index","type":"uint256"}],"name":"isClaimed","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"distributionId","type":"string"},{"name":"index","type":"uint256"},{"name":"account","type":"address"},{"name":"amount","type":"uint256"},{"name":"merkleProof","type":"bytes32[]"}],"name":"claim","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var (
	erc20ABI         = mustParseABI("erc20", erc20ABIJSON)
	pairABI          = mustParseABI("pair", pairABIJSON)
	bondingABI       = mustParseABI("bonding", bondingABIJSON)
	routerABI        = mustParseABI("router", routerABIJSON)
	forumABI         = mustParseABI("forum", forumABIJSON)
	claimRegistryABI = mustParseABI("claim registry", claimRegistryABIJSON)
)

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse %s ABI: %v", name, err))
	}
	return parsed
}
