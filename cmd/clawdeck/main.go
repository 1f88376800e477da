package main

import (
	"github.com/tejjnayak/clawdeck/internal/cmd"
	"github.com/tejjnayak/clawdeck/internal/log"
)

func main() {
	defer log.RecoverPanic("main", nil)
	cmd.Execute()
}
