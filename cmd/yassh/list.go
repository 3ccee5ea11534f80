package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ahagelberg/Yassh/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show stored session profiles",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	st := loadStore()
	setupLogging(st)

	if len(st.Sessions) == 0 && len(st.Folders) == 0 {
		fmt.Println("no stored sessions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTARGET\tAUTH")
	listFolder(w, st, uuid.Nil, "")
	return w.Flush()
}

// listFolder prints the sessions in one folder, then recurses into its
// subfolders with a deeper indent.
func listFolder(w *tabwriter.Writer, st *config.Store, folderID uuid.UUID, indent string) {
	for _, s := range st.SessionsInFolder(folderID) {
		fmt.Fprintf(w, "%s%s\t%s\t%s\n", indent, s.Name, describeTarget(s), s.Auth)
	}
	for _, f := range st.ChildFolders(folderID) {
		fmt.Fprintf(w, "%s%s/\t\t\n", indent, f.Name)
		listFolder(w, st, f.ID, indent+"  ")
	}
}

func describeTarget(s config.Session) string {
	host := s.Host
	if s.Username != "" {
		host = s.Username + "@" + host
	}
	if s.Port != 0 && s.Port != config.DefaultPort {
		host = fmt.Sprintf("%s:%d", host, s.Port)
	}
	return host
}
