package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// transfers: list persisted transfer state, including paused transfers
// that can be resumed.
func transfersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfers",
		Short: "List known file transfers and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := appCtx.Transfers.ListTransfers()
			if err != nil {
				return err
			}
			if len(states) == 0 {
				fmt.Println("no transfers")
				return nil
			}
			for _, st := range states {
				dir := "recv"
				if st.Outgoing {
					dir = "send"
				}
				fmt.Printf("%s  %s  %-11s  %q  %d/%d chunks\n",
					st.ID, dir, st.Status, st.Name, st.Done.Count(), st.TotalChunks())
			}
			return nil
		},
	}
}
