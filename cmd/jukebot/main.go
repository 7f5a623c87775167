package main

import (
	"go.uber.org/fx"

	"github.com/hxnx/jukebot/config"
	"github.com/hxnx/jukebot/internal/bot"
	"github.com/hxnx/jukebot/internal/database"
	commands "github.com/hxnx/jukebot/internal/features"
	"github.com/hxnx/jukebot/internal/logging"
	"github.com/hxnx/jukebot/internal/music"
	"github.com/hxnx/jukebot/internal/redis"
)

func main() {
	fx.New(
		config.Module,
		logging.Module,
		redis.Module,
		database.Module,
		music.Module,
		commands.Module,
		bot.Module,
		fx.WithLogger(logging.NewFxLogger),
	).Run()
}
