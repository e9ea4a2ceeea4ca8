package main

import (
	"flag"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/peertrade/tradecore/config"
	"github.com/peertrade/tradecore/pkg/infra"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	mgTool := infra.NewMigrateTool()
	if err := mgTool.Migrate("file://migration/sql", cfg.JournalDB.MigrationConnURL); err != nil {
		panic(err)
	}
}
