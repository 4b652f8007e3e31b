package ptnet_test

import (
	"testing"

	"github.com/jt05610/ptnet"
	"github.com/jt05610/ptnet/historytest"
)

func TestMemoryHistory(t *testing.T) {
	historytest.Run(t, func(t *testing.T) ptnet.History {
		return ptnet.NewMemoryHistory()
	})
}
