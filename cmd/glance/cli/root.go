package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/glance/internal/catalog"
	"github.com/felixgeelhaar/glance/internal/session"
)

var (
	configFile  string
	envFile     string
	verbose     bool
	jsonLogs    bool
	interactive bool
	brands      []string
	priceMin    string
	priceMax    string
	pages       int
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "glance",
	Short: "Visual product search from the terminal",
	Long: `glance searches a product catalog by text or by photo, pages through the
results, narrows them by brand and price, and shows product detail with
similar items.`,
	SilenceUsage: true,
}

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search products by text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withRunner(cmd, func(r *Runner) error {
			if interactive {
				return r.Interactive(cmd.Context(), query)
			}
			return r.Search(cmd.Context(), session.Query{Kind: session.QueryText, Text: query})
		})
	},
}

var imageCmd = &cobra.Command{
	Use:   "image [path]",
	Short: "Search products by photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(r *Runner) error {
			if interactive {
				return r.Interactive(cmd.Context(), ":image "+args[0])
			}
			img, err := catalog.LoadImage(args[0])
			if err != nil {
				return err
			}
			return r.Search(cmd.Context(), session.Query{Kind: session.QueryImage, Image: img})
		})
	},
}

var detailCmd = &cobra.Command{
	Use:   "detail [hash]",
	Short: "Show a product and similar items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(r *Runner) error {
			return r.Detail(cmd.Context(), args[0])
		})
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive search screen",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(r *Runner) error {
			return r.Interactive(cmd.Context(), "")
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past searches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withRunner(cmd, func(r *Runner) error {
			return r.History(limit)
		})
	},
}

func Execute() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Settings file (.yaml or .json)")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file with GLANCE_* variables")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "Write logs as JSON")

	for _, c := range []*cobra.Command{searchCmd, imageCmd} {
		c.Flags().StringArrayVar(&brands, "brand", nil, "Only these brands (repeatable, or comma separated)")
		c.Flags().StringVar(&priceMin, "price-min", "", "Lowest price")
		c.Flags().StringVar(&priceMax, "price-max", "", "Highest price")
		c.Flags().IntVar(&pages, "pages", 1, "Number of pages to fetch")
		c.Flags().BoolVarP(&interactive, "interactive", "i", false, "Open the results in the interactive screen")
	}
	historyCmd.Flags().Int("limit", 20, "Number of searches to list")

	RootCmd.AddCommand(searchCmd, imageCmd, detailCmd, tuiCmd, historyCmd)
}

// flagFilters builds filters from the search flags.
func flagFilters() (catalog.Filters, error) {
	var names []string
	for _, b := range brands {
		names = append(names, catalog.ParseBrands(b)...)
	}
	lo, err := catalog.ParsePrice(priceMin)
	if err != nil {
		return catalog.Filters{}, err
	}
	hi, err := catalog.ParsePrice(priceMax)
	if err != nil {
		return catalog.Filters{}, err
	}
	return catalog.NewFilters(names, lo, hi)
}
