package main

import (
	"context"
	"medaltable/cmd/medals/commands"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	commands.ExecuteContext(context.Background())
}
