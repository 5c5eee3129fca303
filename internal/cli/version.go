package cli

import (
	"github.com/spf13/cobra"

	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/pkg/api"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of catalogsrv, or of the server given by --server",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := &api.GetVersionRsp{
				ServerVersion: api.ServerVersion,
				ApiVersion:    api.ApiVersion_1_0,
				Providers:     catalog.Providers(),
			}
			if serverURL != "" {
				var err error
				if v, err = newClient().Version(cmd.Context()); err != nil {
					return err
				}
			}
			if jsonOutput {
				printJSON(v)
				return nil
			}
			cmd.Printf("catalogsrv %s (api %s)\n", v.ServerVersion, v.ApiVersion)
			cmd.Printf("providers: %v\n", v.Providers)
			return nil
		},
	}
}

func newClient() *api.Client {
	return api.NewClient(serverURL, api.WithToken(authToken))
}
