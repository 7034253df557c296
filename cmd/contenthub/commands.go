package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
)

// platform

var platformCmd = &cobra.Command{
	Use:   "platform",
	Short: "Manage the platform record",
}

var platformInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the platform; --as becomes the owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		fee, _ := cmd.Flags().GetInt("fee")
		name, _ := cmd.Flags().GetString("name")
		asset, _ := cmd.Flags().GetString("asset")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			ctx, err := actor(ctx)
			if err != nil {
				return err
			}
			p, err := a.ledger.InitializePlatform(ctx, platform.Config{Name: name, FeePercent: fee, Asset: asset})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		})
	},
}

var platformShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the platform record",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			p, err := a.ledger.GetPlatform(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		})
	},
}

var platformStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show platform counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			s, err := a.ledger.GetPlatformStats(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		})
	},
}

// content

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Register and inspect content",
}

var contentUploadCmd = &cobra.Command{
	Use:   "upload <content-id> <payload-ref>",
	Short: "Register content owned by --as",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		up := content.Upload{ContentID: args[0], PayloadRef: args[1]}
		ct, _ := cmd.Flags().GetString("type")
		up.ContentType = content.Type(ct)
		up.ViewPrice, _ = cmd.Flags().GetInt64("view-price")
		up.OwnershipPrice, _ = cmd.Flags().GetInt64("ownership-price")
		up.MetadataRef, _ = cmd.Flags().GetString("metadata")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			ctx, err := actor(ctx)
			if err != nil {
				return err
			}
			c, err := a.ledger.UploadContent(ctx, up)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		})
	},
}

var contentInfoCmd = &cobra.Command{
	Use:   "info <content-id>",
	Short: "Show the public view of content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			info, err := a.ledger.GetContentInfo(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), info)
		})
	},
}

var contentListCmd = &cobra.Command{
	Use:   "list <owner>",
	Short: "List content ids owned by an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			ids, err := a.ledger.GetUserContent(ctx, owner)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ids)
		})
	},
}

var contentRevenueCmd = &cobra.Command{
	Use:   "revenue <content-id>",
	Short: "Show what the creator has earned from content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			m, err := a.ledger.GetCreatorRevenue(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), m)
		})
	},
}

// payments

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Buy a view or ownership as --as",
}

var payViewCmd = &cobra.Command{
	Use:   "view <content-id> <amount>",
	Short: "Pay for a 24 hour view",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPay(cmd, args, payment.KindView)
	},
}

var payOwnCmd = &cobra.Command{
	Use:   "own <content-id> <amount>",
	Short: "Pay for ownership",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPay(cmd, args, payment.KindOwn)
	},
}

func runPay(cmd *cobra.Command, args []string, kind payment.Kind) error {
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		ctx, err := actor(ctx)
		if err != nil {
			return err
		}
		pay := a.ledger.PayToView
		if kind == payment.KindOwn {
			pay = a.ledger.PayToOwn
		}
		p, err := pay(ctx, args[0], amount)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	})
}

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Inspect payment receipts",
}

var paymentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List receipts, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts payment.ListOpts
		opts.ContentID, _ = cmd.Flags().GetString("content")
		payer, _ := cmd.Flags().GetString("payer")
		kind, _ := cmd.Flags().GetString("kind")
		opts.Kind = payment.Kind(kind)
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Offset, _ = cmd.Flags().GetInt("offset")
		if payer != "" {
			addr, err := parseAddress(payer)
			if err != nil {
				return err
			}
			opts.Payer = addr
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			list, err := a.ledger.ListPayments(ctx, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		})
	},
}

var paymentsSpentCmd = &cobra.Command{
	Use:   "spent <address>",
	Short: "Show the total an address has paid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			m, err := a.ledger.GetUserPayments(ctx, addr)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), m)
		})
	},
}

// access

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Grant and check view access",
}

var accessGrantCmd = &cobra.Command{
	Use:   "grant <content-id> <user>",
	Short: "Grant a view without payment; --as must own the content or the platform",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := parseAddress(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			ctx, err := actor(ctx)
			if err != nil {
				return err
			}
			s, err := a.ledger.GrantViewAccess(ctx, args[0], user)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		})
	},
}

var accessCheckCmd = &cobra.Command{
	Use:   "check <content-id> <user>",
	Short: "Check whether a user may view content",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := parseAddress(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			res, err := a.ledger.CheckViewAccess(ctx, args[0], user)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

// ownership

var ownershipCmd = &cobra.Command{
	Use:   "ownership",
	Short: "Mint and inspect ownership records",
}

var ownershipMintCmd = &cobra.Command{
	Use:   "mint <content-id> <owner>",
	Short: "Mint ownership without payment; --as must own the platform",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parseAddress(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			ctx, err := actor(ctx)
			if err != nil {
				return err
			}
			rec, err := a.ledger.MintOwnership(ctx, args[0], owner)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		})
	},
}

var ownershipShowCmd = &cobra.Command{
	Use:   "show <content-id>",
	Short: "Show the ownership record of content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			rec, err := a.ledger.GetOwnership(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		})
	},
}

func init() {
	platformInitCmd.Flags().Int("fee", platform.DefaultFeePercent, "platform fee percent (0-100)")
	platformInitCmd.Flags().String("name", "", "platform name")
	platformInitCmd.Flags().String("asset", "", "settlement asset code")

	contentUploadCmd.Flags().String("type", string(content.TypeVideo), "content type")
	contentUploadCmd.Flags().Int64("view-price", 0, "price of a 24 hour view")
	contentUploadCmd.Flags().Int64("ownership-price", 0, "price of ownership")
	contentUploadCmd.Flags().String("metadata", "", "metadata reference")

	paymentsListCmd.Flags().String("content", "", "filter by content id")
	paymentsListCmd.Flags().String("payer", "", "filter by payer address")
	paymentsListCmd.Flags().String("kind", "", "filter by kind (view or own)")
	paymentsListCmd.Flags().Int("limit", 0, "maximum receipts to return")
	paymentsListCmd.Flags().Int("offset", 0, "receipts to skip")
}
