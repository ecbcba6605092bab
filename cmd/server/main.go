package main

import (
	"context"
	"fmt"
	"log"

	"github.com/common-nighthawk/go-figure"
	"github.com/dmitrijs2005/equiplookup/internal/server"
	"github.com/dmitrijs2005/equiplookup/internal/server/config"
)

func main() {

	displayAppname("equiplookup")

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
