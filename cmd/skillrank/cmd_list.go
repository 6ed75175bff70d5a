package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kalybratex/skillrank/internal/skills"
)

var listSkillsDir string

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the skills available for evaluation",
		RunE:  listCommandE,
	}

	cmd.Flags().StringVar(&listSkillsDir, "skills-dir", "data/skills", "Skills directory")

	return cmd
}

func listCommandE(cmd *cobra.Command, args []string) error {
	all, err := skills.NewLoader(listSkillsDir).LoadAll()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No skills found under %s\n", listSkillsDir)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tAUTHOR\tSTARS\tSIZE")
	for _, s := range all {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d bytes\n",
			s.ID, s.DisplayName(), s.Metadata.Author, s.Metadata.Stars, len(s.Content))
	}
	return w.Flush()
}
