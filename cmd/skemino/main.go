package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"skemino-client/internal/config"
	"skemino-client/internal/prompt"
	"skemino-client/pkg/board"
	"skemino-client/pkg/credential"
	"skemino-client/pkg/deck"
	"skemino-client/pkg/gamestate"
	"skemino-client/pkg/protocol"
	"skemino-client/pkg/realtime"
)

// Version is the client version
var Version = "v0.0.0-dev"

var command = flag.String("c", "play", "specifies the command (play, login, logout, cards, version)")
var guest = flag.Bool("guest", false, "play as a guest even if a token is stored")

func main() {
	flag.Parse()
	setupLogger()

	cfg := config.Instance()
	creds := credential.NewFileStore(cfg.Credentials.File)
	auth := credential.NewAuthClient(cfg.Server.URL, cfg.Server.GuestPath, cfg.Server.LoginPath)

	switch *command {
	case "play":
		var store credential.Store = creds
		if *guest {
			store = &credential.MemoryStore{}
		}

		if err := play(cfg, store, auth); err != nil {
			logrus.WithError(err).Fatal("could not play")
		}
	case "login":
		p := prompt.New()
		email, err := p.Email()
		if err != nil {
			logrus.WithError(err).Fatal("could not read email")
		}

		password, err := p.Password(1)
		if err != nil {
			logrus.WithError(err).Fatal("could not read password")
		}

		tok, err := auth.Login(context.Background(), email, password)
		if err != nil {
			logrus.WithError(err).Fatal("could not log in")
		}

		if err := creds.Save(tok, true); err != nil {
			logrus.WithError(err).Fatal("could not save token")
		}

		fmt.Println("Logged in")
	case "logout":
		if err := creds.Clear(); err != nil {
			logrus.WithError(err).Fatal("could not remove token")
		}
	case "cards":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(deck.Catalogue()); err != nil {
			logrus.WithError(err).Fatal("could not encode catalogue")
		}
	case "version":
		fmt.Println(Version)
	default:
		logrus.Fatalf("unknown command: %s", *command)
	}
}

func play(cfg config.Config, creds credential.Store, auth *credential.AuthClient) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := gamestate.NewStore()
	manager := realtime.NewManager(func() *realtime.Client {
		return realtime.New(realtime.OptionsFromConfig(cfg), store, creds, auth)
	})

	gameOver := make(chan protocol.GameOver, 1)
	handle, err := manager.Acquire(ctx, realtime.Handlers{
		OnStatusChange: func(status realtime.Status) {
			logrus.WithField("status", status).Info("connection status changed")
		},
		OnGameError: func(err protocol.GameError) {
			fmt.Printf("rejected: %s\n", err.Message)
		},
		OnGameOver: func(over protocol.GameOver) {
			select {
			case gameOver <- over:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer handle.Release()

	client := handle.Client()
	if err := client.WaitForStatus(ctx, realtime.StatusConnected); err != nil {
		return err
	}

	client.JoinMatchmaking()

	changes, unsubscribe := store.Subscribe()
	defer unsubscribe()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	var last string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			var sb strings.Builder
			renderView(&sb, store.Snapshot())
			if out := sb.String(); out != last {
				fmt.Print(out)
				last = out
			}
		case over := <-gameOver:
			fmt.Printf("game over (%s)\n", over.Reason)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}

			if err := runCommand(client, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}

				fmt.Println(err)
			}
		}
	}
}

var errQuit = errors.New("quit")

// runCommand maps one line of user input to an intent
func runCommand(client *realtime.Client, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	sent := true
	switch fields[0] {
	case "move":
		if len(fields) != 3 {
			return errors.New("usage: move <card> <cell>")
		}

		card, err := deck.Parse(strings.ToUpper(fields[1]))
		if err != nil {
			return err
		}

		cell, err := board.ParseCell(strings.ToLower(fields[2]))
		if err != nil {
			return err
		}

		if !client.Store().IsMyTurn() {
			return errors.New("it is not your turn")
		}

		_, err = client.PlayMove(card, cell)
		return err
	case "draw":
		sent = client.OfferDraw()
	case "accept":
		sent = client.RespondToDraw(true)
	case "decline":
		sent = client.RespondToDraw(false)
	case "resign":
		sent = client.Resign()
	case "quit":
		return errQuit
	default:
		return fmt.Errorf("unknown command: %s", fields[0])
	}

	if !sent {
		return realtime.ErrNotConnected
	}

	return nil
}

func setupLogger() {
	if lvl := config.Instance().Log.Level; lvl != "" {
		level, err := logrus.ParseLevel(lvl)
		if err != nil {
			logrus.WithError(err).Fatal("could not parse level")
		}

		logrus.SetLevel(level)
	}

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
