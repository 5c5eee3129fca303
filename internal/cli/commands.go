package cli

import (
	"fmt"
	"os"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
	serverURL  string
	authToken  string
)

// NewRootCmd builds the catalogsrv command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogsrv",
		Short: "Metadata catalog server",
		Long: `catalogsrv serves a hierarchy of metalakes, catalogs, schemas, tables and filesets
over REST, backed by relational databases and file systems.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a TOML or YAML config file")
	cmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "URL of a running catalog server to query")
	cmd.PersistentFlags().StringVarP(&authToken, "token", "t", os.Getenv("METACATALOG_TOKEN"), "Bearer token sent to the catalog server, defaults to $METACATALOG_TOKEN")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newListCmd())
	return cmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if jsonOutput {
			printJSON(map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// printJSON prints the given value as JSON to stdout
func printJSON(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}
