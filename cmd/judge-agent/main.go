package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Diwakar-Gupta/pepper/internal/agent/session"
	httpclient "github.com/Diwakar-Gupta/pepper/internal/cli/http"
	"github.com/Diwakar-Gupta/pepper/internal/cli/repl"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judge_agent.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "judge-agent: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "judge-agent",
		Usage: "run code for a paired browser and judge it against problem test cases",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   defaultConfigPath,
				Usage:   "path to config file",
			},
		},
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "pair with a browser and serve requests (default)",
				Action: runAction,
			},
			{
				Name:   "code",
				Usage:  "print the pairing code and exit",
				Action: codeAction,
			},
			{
				Name:  "repl",
				Usage: "send requests to the local judge from a console",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "remote",
						Usage: "front door URL of a running agent (e.g. http://127.0.0.1:8790)",
					},
				},
				Action: replAction,
			},
		},
	}
}

func setup(cmd *cli.Command) (*AppConfig, error) {
	cfg, err := loadAppConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logger); err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}
	return cfg, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	sess, err := loadSession(cfg)
	if err != nil {
		return err
	}
	printBanner(os.Stdout, sess)

	stack, err := buildJudgeStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	a, err := buildAgent(cfg, sess, stack)
	if err != nil {
		return err
	}
	logger.Info(ctx, "judge agent starting",
		zap.String("signaling", cfg.Signaling.URL),
		zap.String("store", cfg.Store.Path),
		zap.Bool("front_door", cfg.FrontDoor.Enabled),
	)
	if err := a.Run(ctx); err != nil {
		return err
	}
	logger.Info(context.Background(), "judge agent stopped")
	return nil
}

func codeAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	sess, err := loadSession(cfg)
	if err != nil {
		return err
	}
	fmt.Println(sess.Display())
	return nil
}

func replAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	var handler repl.FrameHandler
	if remote := cmd.String("remote"); remote != "" {
		handler = httpclient.New(remote, cfg.FrontDoor.WriteTimeout)
	} else {
		stack, err := buildJudgeStack(ctx, cfg)
		if err != nil {
			return err
		}
		defer stack.Close()
		handler = stack.dispatcher
	}

	console := repl.New(handler, os.Stdout, *cfg.REPL.PrettyJSON)
	return console.Run(ctx, cfg.REPL.HistoryFile)
}

func printBanner(w io.Writer, sess *session.Session) {
	title := color.New(color.FgHiCyan, color.Bold)
	code := color.New(color.FgHiGreen, color.Bold)
	_, _ = title.Fprintln(w, "Pepper judge agent")
	_, _ = fmt.Fprint(w, "Pairing code: ")
	_, _ = code.Fprintln(w, sess.Display())
	_, _ = fmt.Fprintln(w, "Enter this code in the browser to connect.")
}
