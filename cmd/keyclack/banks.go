package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/keyclack/internal/adapter/output"
	"github.com/jmylchreest/keyclack/internal/bank"
	"github.com/jmylchreest/keyclack/internal/core"
)

var banksOpts struct {
	format string
	source string
	search string
	sort   string
	order  string
	limit  int
}

var banksCmd = &cobra.Command{
	Use:   "banks",
	Short: "List available sound banks",
	Long: `List the bundled sound banks and those found in the user banks directory
(~/.config/keyclack/banks by default). A user bank with the same name as a
bundled one replaces it. The active bank is marked when keyclackd is running.

Examples:
  keyclack banks
  keyclack banks --format json
  keyclack banks --source user --sort files --order desc
  keyclack banks --format plain | fuzzel --dmenu | xargs keyclack set bank`,
	Args: cobra.NoArgs,
	RunE: runBanks,
}

func init() {
	rootCmd.AddCommand(banksCmd)

	banksCmd.Flags().StringVarP(&banksOpts.format, "format", "f", "table",
		"Output format (table, plain, json, yaml)")
	banksCmd.Flags().StringVar(&banksOpts.source, "source", "",
		"Only list bundled or user banks")
	banksCmd.Flags().StringVarP(&banksOpts.search, "search", "s", "",
		"Only list banks whose name contains this text")
	banksCmd.Flags().StringVar(&banksOpts.sort, "sort", "",
		"Sort by field (name, source, files; default: catalog order)")
	banksCmd.Flags().StringVar(&banksOpts.order, "order", "asc",
		"Sort order (asc, desc)")
	banksCmd.Flags().IntVarP(&banksOpts.limit, "limit", "n", 0,
		"Maximum number of banks to list (0 = all)")
}

func runBanks(cmd *cobra.Command, args []string) error {
	formatter, err := output.NewFormatter(banksOpts.format)
	if err != nil {
		return err
	}
	source, err := core.ParseSource(banksOpts.source)
	if err != nil {
		return err
	}
	field, err := core.ParseSortField(banksOpts.sort)
	if err != nil {
		return err
	}
	order, err := core.ParseSortOrder(banksOpts.order)
	if err != nil {
		return err
	}

	catalog := bank.NewCatalog(cfg.BanksDir(), logger)
	if err := catalog.Reload(); err != nil {
		logger.Warn("failed to load user banks", "error", err)
	}

	active := ""
	if client, err := connectDaemon(); err == nil {
		if st, err := client.Status(); err == nil {
			active = st.Bank
		}
		_ = client.Close()
	} else if st, err := offlineStatus(); err == nil {
		active = st.Bank
	}

	entries := catalog.List()
	if banksOpts.sort != "" {
		core.Sort(entries, core.SortOptions{Field: field, Order: order})
	}
	entries = core.Filter(entries, core.FilterOptions{
		Source: source,
		Search: banksOpts.search,
		Limit:  banksOpts.limit,
	})

	infos := make([]output.BankInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, bankInfo(e, active))
	}
	return formatter.FormatBanks(os.Stdout, infos)
}

func bankInfo(e bank.Entry, active string) output.BankInfo {
	b := e.Bank
	return output.BankInfo{
		Name:        b.Name,
		DisplayName: b.DisplayName,
		Source:      e.Source,
		Files:       len(b.Files),
		NonUnique:   b.NonUniqueCount,
		MappedKeys:  len(b.KeyToIndex),
		Bytes:       bankBytes(e),
		Active:      b.Name == active,
	}
}

// bankBytes sums the size of every readable file in the bank.
func bankBytes(e bank.Entry) int64 {
	var total int64
	for _, name := range e.Bank.Files {
		rc, err := e.Resolver.Open(name)
		if err != nil {
			continue
		}
		n, _ := io.Copy(io.Discard, rc)
		_ = rc.Close()
		total += n
	}
	return total
}
