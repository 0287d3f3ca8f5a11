package model

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEther(t *testing.T) {
	assert.Equal(t, "0.1", FormatEther(big.NewInt(1e17)))
	assert.Equal(t, "0", FormatEther(nil))
	assert.Equal(t, "0.000000000000000001", FormatEther(big.NewInt(1)))

	tenK, _ := new(big.Int).SetString("10000000000000000000000", 10)
	assert.Equal(t, "10000", FormatEther(tenK))
}

func TestParseEther(t *testing.T) {
	wei, err := ParseEther("0.1")
	require.NoError(t, err)
	assert.Equal(t, "100000000000000000", wei.String())

	wei, err = ParseEther("2")
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", wei.String())

	for _, bad := range []string{"-1", "abc", "0.0000000000000000001"} {
		_, err := ParseEther(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseWei(t *testing.T) {
	v, err := ParseWei("12345")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), v.Int64())

	_, err = ParseWei("1e5")
	assert.Error(t, err)
}

func TestListingActive(t *testing.T) {
	assert.False(t, Listing{Price: new(big.Int)}.Active())
	assert.False(t, Listing{}.Active())
	assert.True(t, Listing{Price: big.NewInt(1), Seller: common.HexToAddress("0x01")}.Active())
}

func TestRevertError(t *testing.T) {
	notListed := Revert(ErrNotListed, "NFTify: this item is not listed")
	wrapped := fmt.Errorf("buy: %w", notListed)

	assert.ErrorIs(t, wrapped, ErrNotListed)
	assert.ErrorIs(t, wrapped, notListed)
	assert.NotErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, "NFTify: this item is not listed", ReasonOf(wrapped))

	cause := errors.New("hook refused")
	failed := Revert(ErrTransferFailed, "NFTify: transfer failed").Because(cause)
	assert.ErrorIs(t, failed, cause)
	assert.ErrorIs(t, failed, ErrTransferFailed)
	assert.Equal(t, "NFTify: transfer failed: hook refused", failed.Error())
	assert.Equal(t, "NFTify: transfer failed", ReasonOf(failed))

	assert.Equal(t, "plain", ReasonOf(errors.New("plain")))
}
