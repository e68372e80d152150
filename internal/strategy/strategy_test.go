package strategy

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/l2arb/mevcore/internal/mempool"
)

func TestStubsAlwaysDecline(t *testing.T) {
	tx := mempool.MempoolTx{Hash: common.HexToHash("0xdead")}

	for _, s := range []Strategy{SandwichStub{}, LiquidationStub{}} {
		opp, ok := s.Detect(tx)
		require.False(t, ok)
		require.Nil(t, opp)
	}
}
