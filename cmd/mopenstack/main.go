package main

import (
	"github.com/neilfarmer/mopenstack/internal/config"
	"github.com/neilfarmer/mopenstack/internal/keystone"
	"github.com/neilfarmer/mopenstack/internal/nova"
	"github.com/neilfarmer/mopenstack/internal/observability"
	"github.com/neilfarmer/mopenstack/internal/seed"
	"github.com/neilfarmer/mopenstack/internal/server"
	"github.com/neilfarmer/mopenstack/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,

		keystone.Module,
		nova.Module,
		seed.Module,

		server.Module,
	)
	app.Run()
}
