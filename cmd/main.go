package main

import (
	"github.com/orderdesk/fulfillment/internal/app"
	"github.com/orderdesk/fulfillment/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
