package duckdb

import (
	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/internal/catalogsrv/jdbc"
)

const ProviderName = "jdbc-duckdb"

func init() {
	catalog.RegisterProvider(jdbc.NewProvider(ProviderName, NewDialect()))
}
