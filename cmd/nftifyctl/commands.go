package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	handler "nftify-back-onchain/handler/market"
	"nftify-back-onchain/model"
)

const marketAPI = "/api/v1/market"

var approveAll bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the marketplace and collection addresses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd.OutOrStdout(), http.MethodGet, marketAPI+"/info", nil, nil)
	},
}

var mintCmd = &cobra.Command{
	Use:   "mint <collection>",
	Short: "Mint the next token of a collection to --from",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := caller()
		if err != nil {
			return err
		}
		nft, err := addressArg("collection", args[0])
		if err != nil {
			return err
		}
		return call(cmd.OutOrStdout(), http.MethodPost, marketAPI+"/collections/"+nft.Hex()+"/mint", from, nil)
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <collection> <tokenId|-> <operator>",
	Short: "Approve an operator for one token, or for every token with --all",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := caller()
		if err != nil {
			return err
		}
		nft, err := addressArg("collection", args[0])
		if err != nil {
			return err
		}
		operator, err := addressArg("operator", args[2])
		if err != nil {
			return err
		}
		if approveAll {
			return call(cmd.OutOrStdout(), http.MethodPost, marketAPI+"/collections/"+nft.Hex()+"/approval-for-all", from,
				handler.ApprovalForAllRequest{Operator: operator.Hex(), Approved: true})
		}
		id, err := tokenArg(args[1])
		if err != nil {
			return err
		}
		return call(cmd.OutOrStdout(), http.MethodPost, tokenPath(nft.Hex(), id)+"/approve", from,
			handler.ApproveRequest{Operator: operator.Hex()})
	},
}

var listCmd = &cobra.Command{
	Use:   "list <collection> <tokenId> <priceEth>",
	Short: "List a token for sale",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := caller()
		if err != nil {
			return err
		}
		nft, id, err := listingArgs(args)
		if err != nil {
			return err
		}
		price, err := model.ParseEther(args[2])
		if err != nil {
			return err
		}
		return call(cmd.OutOrStdout(), http.MethodPost, marketAPI+"/listings", from,
			handler.ListItemRequest{NftAddress: nft, TokenId: id, PriceWei: price.String()})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <collection> <tokenId> <priceEth>",
	Short: "Change the price of a listing",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := caller()
		if err != nil {
			return err
		}
		nft, id, err := listingArgs(args)
		if err != nil {
			return err
		}
		price, err := model.ParseEther(args[2])
		if err != nil {
			return err
		}
		return call(cmd.OutOrStdout(), http.MethodPut, listingPath(nft, id), from,
			handler.UpdateListingRequest{PriceWei: price.String()})
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <collection> <tokenId>",
	Short: "Cancel a listing",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := caller()
		if err != nil {
			return err
		}
		nft, id, err := listingArgs(args)
		if err != nil {
			return err
		}
		return call(cmd.OutOrStdout(), http.MethodDelete, listingPath(nft, id), from, nil)
	},
}

var buyCmd = &cobra.Command{
	Use:   "buy <collection> <tokenId> <valueEth>",
	Short: "Buy a listed token, paying valueEth",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := caller()
		if err != nil {
			return err
		}
		nft, id, err := listingArgs(args)
		if err != nil {
			return err
		}
		value, err := model.ParseEther(args[2])
		if err != nil {
			return err
		}
		return call(cmd.OutOrStdout(), http.MethodPost, listingPath(nft, id)+"/buy", from,
			handler.BuyItemRequest{ValueWei: value.String()})
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw the proceeds of --from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := caller()
		if err != nil {
			return err
		}
		return call(cmd.OutOrStdout(), http.MethodPost, marketAPI+"/withdraw", from, nil)
	},
}

var listingCmd = &cobra.Command{
	Use:   "listing <collection> <tokenId>",
	Short: "Show the listing of a token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nft, id, err := listingArgs(args)
		if err != nil {
			return err
		}
		return call(cmd.OutOrStdout(), http.MethodGet, listingPath(nft, id), nil, nil)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <collection> <tokenId>",
	Short: "Show owner, approval and URI of a token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nft, id, err := listingArgs(args)
		if err != nil {
			return err
		}
		return call(cmd.OutOrStdout(), http.MethodGet, tokenPath(nft, id), nil, nil)
	},
}

var proceedsCmd = &cobra.Command{
	Use:   "proceeds <seller>",
	Short: "Show the withdrawable proceeds of a seller",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seller, err := addressArg("seller", args[0])
		if err != nil {
			return err
		}
		return call(cmd.OutOrStdout(), http.MethodGet, marketAPI+"/proceeds/"+seller.Hex(), nil, nil)
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <account>",
	Short: "Show the ether balance of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := addressArg("account", args[0])
		if err != nil {
			return err
		}
		return call(cmd.OutOrStdout(), http.MethodGet, marketAPI+"/balances/"+account.Hex(), nil, nil)
	},
}

func init() {
	approveCmd.Flags().BoolVar(&approveAll, "all", false, "approve the operator for every token of --from (tokenId is ignored)")

	rootCmd.AddCommand(infoCmd, mintCmd, approveCmd, listCmd, updateCmd, cancelCmd, buyCmd,
		withdrawCmd, listingCmd, tokenCmd, proceedsCmd, balanceCmd)
}

func tokenArg(v string) (uint64, error) {
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token ID %q is not a number", v)
	}
	return id, nil
}

func listingArgs(args []string) (string, uint64, error) {
	nft, err := addressArg("collection", args[0])
	if err != nil {
		return "", 0, err
	}
	id, err := tokenArg(args[1])
	if err != nil {
		return "", 0, err
	}
	return nft.Hex(), id, nil
}

func listingPath(nft string, id uint64) string {
	return marketAPI + "/listings/" + nft + "/" + strconv.FormatUint(id, 10)
}

func tokenPath(nft string, id uint64) string {
	return marketAPI + "/collections/" + nft + "/tokens/" + strconv.FormatUint(id, 10)
}
