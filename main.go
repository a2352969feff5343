package main

import (
	_ "github.com/joho/godotenv/autoload" // Autoload .env file.

	"github.com/tipdrop/tipdrop-api/cmd/app"
)

// @title           TipDrop API
// @description     QR tipping for venues: tip collection, distribution and payouts.
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token
func main() {
	if err := app.Start(); err != nil {
		panic(err)
	}
}
