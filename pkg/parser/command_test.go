package parser

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkagent-launchpad/pkg/types"
)

const agentToken = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

func TestParseSwapCommand(t *testing.T) {
	tests := []struct {
		input     string
		direction types.Direction
		amount    string
	}{
		{"buy 100 " + agentToken, types.Buy, "100"},
		{"swap sell 0.5 " + agentToken, types.Sell, "0.5"},
		{"  BUY   12.25   " + agentToken + " ", types.Buy, "12.25"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := ParseSwapCommand(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.direction, cmd.Direction)
			assert.Equal(t, tt.amount, cmd.Amount)
			assert.Equal(t, common.HexToAddress(agentToken), cmd.Token)
		})
	}
}

func TestParseSwapCommandRejectsMalformed(t *testing.T) {
	for _, input := range []string{
		"",
		"hold 1 " + agentToken,
		"buy abc " + agentToken,
		"buy 1 0x1234",
		"buy " + agentToken,
	} {
		_, err := ParseSwapCommand(input)
		assert.Error(t, err, input)
	}
}

func TestToMinorUnits(t *testing.T) {
	v, err := ToMinorUnits("1.5", 18)
	require.NoError(t, err)
	expected, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, 0, expected.Cmp(v))

	v, err = ToMinorUnits("100", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), v.Int64())

	v, err = ToMinorUnits("0", 6)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Sign())

	_, err = ToMinorUnits("0.0000001", 6)
	assert.Error(t, err)

	_, err = ToMinorUnits("-1", 6)
	assert.Error(t, err)

	_, err = ToMinorUnits("", 6)
	assert.Error(t, err)
}

func TestFromMinorUnits(t *testing.T) {
	assert.Equal(t, "1.5", FromMinorUnits(big.NewInt(1_500_000), 6))
	assert.Equal(t, "0", FromMinorUnits(nil, 18))
	assert.Equal(t, "42", FromMinorUnits(big.NewInt(42), 0))
}
