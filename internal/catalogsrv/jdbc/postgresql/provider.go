package postgresql

import (
	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/internal/catalogsrv/jdbc"
)

const ProviderName = "jdbc-postgresql"

func init() {
	catalog.RegisterProvider(jdbc.NewProvider(ProviderName, NewDialect()))
}
