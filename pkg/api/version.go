// Package api holds the wire types of the catalog server that clients share,
// and a small client for them.
package api

const ApiVersion_1_0 = "v1"

// ServerVersion is set at link time.
var ServerVersion = "0.1.0-dev"

type GetVersionRsp struct {
	ServerVersion string   `json:"serverVersion"`
	ApiVersion    string   `json:"apiVersion"`
	Providers     []string `json:"providers"`
}
