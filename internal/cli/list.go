package cli

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/tansive/metacatalog/internal/catalogsrv/apis"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List objects of a running catalog server",
		Long: `List objects of a running catalog server.

Examples:
  catalogsrv list metalakes --server http://localhost:8090
  catalogsrv list catalogs lake --server http://localhost:8090`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if serverURL == "" {
				return errors.New("--server is required")
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "metalakes",
		Short: "List metalakes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rsp struct {
				Metalakes []meta.Metalake `json:"metalakes"`
			}
			if err := newClient().Do(cmd.Context(), http.MethodGet, "/metalakes", nil, &rsp); err != nil {
				return err
			}
			if jsonOutput {
				printJSON(rsp.Metalakes)
				return nil
			}
			for _, m := range rsp.Metalakes {
				cmd.Println(m.Name)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "catalogs <metalake>",
		Short: "List the catalogs of a metalake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rsp apis.ListRsp
			path := "/metalakes/" + url.PathEscape(args[0]) + "/catalogs"
			if err := newClient().Do(cmd.Context(), http.MethodGet, path, nil, &rsp); err != nil {
				return err
			}
			if jsonOutput {
				printJSON(rsp.Identifiers)
				return nil
			}
			for _, id := range rsp.Identifiers {
				cmd.Println(id.String())
			}
			return nil
		},
	})
	return cmd
}
