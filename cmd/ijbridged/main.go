package main

import (
	"context"
	"os"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/commands"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/logger"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/resiliency"
)

const (
	errCommandError = 1
	errSetup        = 2
	errPanic        = 3
)

func main() {
	log := logger.New("ijbridged")

	defer func() {
		panicErr := resiliency.MakePanicError(recover(), log.Logger)
		if panicErr != nil {
			os.Stderr.WriteString(panicErr.Error() + "\n")
			log.Flush()
			os.Exit(errPanic)
		}
	}()

	root, err := commands.NewRootCmd(log)
	if err != nil {
		log.Error(err, "could not set up the command tree")
		log.Flush()
		os.Exit(errSetup)
	}

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Error(err, "command failed")
		log.Flush()
		os.Exit(errCommandError)
	}

	log.Flush()
}
