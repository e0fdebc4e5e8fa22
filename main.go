package main

import (
	"github.com/waddleai/waddle-go/internal/cmd"
	"github.com/waddleai/waddle-go/internal/log"
)

func main() {
	defer log.RecoverPanic("main", nil)
	cmd.Execute()
}
