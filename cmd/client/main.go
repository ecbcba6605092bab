package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/equiplookup/internal/client/catalog"
	"github.com/dmitrijs2005/equiplookup/internal/client/cli"
	"github.com/dmitrijs2005/equiplookup/internal/client/config"
	"github.com/dmitrijs2005/equiplookup/internal/client/provider"
	"github.com/dmitrijs2005/equiplookup/internal/client/session"
	"github.com/dmitrijs2005/equiplookup/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)

	p, err := provider.New(cfg.IdentityAddr, cfg.SessionFile, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer p.Close()

	rec := session.New(p, logger, session.WithPullDelay(cfg.PullDelay))
	defer rec.Close()

	gw := catalog.NewGateway(cfg.CatalogURL, catalog.NewAuthorizedClient(p, cfg.RequestTimeout))

	app := cli.NewApp(rec, gw, p, logger, os.Stdin, os.Stdout)
	app.Run(ctx)

}
