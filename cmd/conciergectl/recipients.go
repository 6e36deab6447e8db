package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/my3-ai/concierge/internal/dialog"
	"github.com/my3-ai/concierge/internal/model"
)

func init() {
	recipientsCmd := &cobra.Command{Use: "recipients", Short: "Gift recipient operations"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(apiFlag + "/api/recipients")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	recipientsCmd.AddCommand(listCmd)

	getCmd := &cobra.Command{
		Use:   "get CONTACT_ID",
		Short: "Get a recipient by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/recipients/%s", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	recipientsCmd.AddCommand(getCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete CONTACT_ID",
		Short: "Delete a recipient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := doDelete(fmt.Sprintf("%s/api/recipients/%s", apiFlag, args[0])); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, "deleted")
			return nil
		},
	}
	recipientsCmd.AddCommand(deleteCmd)

	occasionsCmd := &cobra.Command{
		Use:   "occasions CONTACT_ID",
		Short: "List a recipient's upcoming occasions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/recipients/%s/occasions", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	recipientsCmd.AddCommand(occasionsCmd)

	scanCmd := &cobra.Command{
		Use:   "scan-duplicates",
		Short: "Report likely duplicate recipient entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScanDuplicates(os.Stdout)
		},
	}
	recipientsCmd.AddCommand(scanCmd)

	rootCmd.AddCommand(recipientsCmd)
}

// runScanDuplicates fetches all recipients and groups names whose similarity
// clears the loose threshold. Looser than the in-chat grouping so operators
// see borderline pairs too.
func runScanDuplicates(out io.Writer) error {
	data, err := doGet(apiFlag + "/api/recipients")
	if err != nil {
		return err
	}
	var resp struct {
		Recipients []model.Contact `json:"recipients"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return err
	}

	seen := make(map[string]bool)
	found := false
	for i := range resp.Recipients {
		if seen[resp.Recipients[i].ContactID] {
			continue
		}
		group := []model.Contact{resp.Recipients[i]}
		for j := i + 1; j < len(resp.Recipients); j++ {
			if seen[resp.Recipients[j].ContactID] {
				continue
			}
			sim := dialog.Similarity(
				dialog.NormalizeName(resp.Recipients[i].Name),
				dialog.NormalizeName(resp.Recipients[j].Name),
			)
			if sim >= dialog.LooseFuzzyThreshold {
				group = append(group, resp.Recipients[j])
				seen[resp.Recipients[j].ContactID] = true
			}
		}
		if len(group) > 1 {
			found = true
			_, _ = fmt.Fprintf(out, "possible duplicates of %q:\n", group[0].Name)
			for _, c := range group {
				_, _ = fmt.Fprintf(out, "  %s  %-20s  %s\n", c.ContactID, c.Name, c.Relationship)
			}
		}
	}
	if !found {
		_, _ = fmt.Fprintln(out, "no likely duplicates found")
	}
	return nil
}
