package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erp/datasynth/internal/idgen"
	"github.com/erp/datasynth/internal/seed"
)

func newIDsCmd() *cobra.Command {
	var (
		runSeed       uint64
		namespace     string
		count         int
		start         uint64
		discriminator uint8
	)
	cmd := &cobra.Command{
		Use:   "ids",
		Short: "Print deterministic identifiers.",
		Long: `Ids prints the identifiers a run with the given seed assigns in a ` +
			`namespace, starting at a counter value, so single records can be ` +
			`re-derived without replaying the run. Record k of period p sits at ` +
			`counter p*records_per_period+k in the journal_entry namespace.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, err := idgen.ParseNamespace(namespace)
			if err != nil {
				return err
			}
			if count < 0 {
				return fmt.Errorf("count must not be negative: %d", count)
			}

			factory := idgen.NewFactory(seed.Derive(runSeed, seed.ComponentIdentifier), ns, idgen.WithStart(start), idgen.WithDiscriminator(discriminator))
			w := bufio.NewWriter(cmd.OutOrStdout())
			for range count {
				fmt.Fprintln(w, factory.Next())
			}
			return w.Flush()
		},
	}

	flags := cmd.Flags()
	flags.Uint64Var(&runSeed, "seed", 0, "Run seed")
	flags.StringVar(&namespace, "namespace", idgen.NamespaceJournalEntry.String(), "Namespace, e.g. journal_entry or vendor")
	flags.IntVar(&count, "count", 10, "Number of identifiers to print")
	flags.Uint64Var(&start, "start", 0, "First counter value")
	flags.Uint8Var(&discriminator, "discriminator", 0, "Sub-discriminator within the namespace")
	return cmd
}
