package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/synacor/argon2id"
	"gopkg.in/yaml.v2"
	"skemino-client/internal/config"
	"skemino-client/internal/prompt"
)

const minPasswordLength = 6
const defaultRating = 1200

var command = flag.String("c", "user", "specifies the command (user, hash)")

func main() {
	flag.Parse()

	p := prompt.New()

	switch *command {
	case "user":
		email, err := p.Email()
		if err != nil {
			logrus.WithError(err).Fatal("could not read email")
		}

		hash := hashPassword(p)

		username, err := p.Input("Username")
		if err != nil {
			logrus.WithError(err).Fatal("could not get answer")
		}

		rating := defaultRating
		answer, err := p.Input(fmt.Sprintf("Rating (%d)", defaultRating))
		if err != nil {
			logrus.WithError(err).Fatal("could not get answer")
		}

		if answer != "" {
			if rating, err = strconv.Atoi(answer); err != nil {
				logrus.WithError(err).Fatal("rating must be a number")
			}
		}

		// paste the output under demo.users
		users := []config.DemoUser{{
			Email:        email,
			Username:     username,
			PasswordHash: hash,
			Rating:       rating,
		}}

		if err := yaml.NewEncoder(os.Stdout).Encode(users); err != nil {
			logrus.WithError(err).Fatal("could not encode user")
		}
	case "hash":
		fmt.Println(hashPassword(p))
	default:
		logrus.Fatalf("unknown command: %s", *command)
	}
}

func hashPassword(p *prompt.Prompter) string {
	password, err := p.Password(minPasswordLength)
	if err != nil {
		logrus.WithError(err).Fatal("could not read password")
	}

	hash, err := argon2id.DefaultHashPassword(password)
	if err != nil {
		logrus.WithError(err).Fatal("could not hash password")
	}

	return hash
}
