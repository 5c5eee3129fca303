package main

import (
	"github.com/tansive/metacatalog/internal/cli"

	_ "github.com/tansive/metacatalog/internal/catalogsrv/fileset"
	_ "github.com/tansive/metacatalog/internal/catalogsrv/jdbc/duckdb"
	_ "github.com/tansive/metacatalog/internal/catalogsrv/jdbc/postgresql"
)

func main() {
	cli.Execute()
}
